package dbtest

import "github.com/angelmondragon/bazaar-backend/pkg/types"

func SampleAddress() types.Address {
	return types.Address{
		Recipient: "Ada Nkem",
		Phone:     "+237600000001",
		Line1:     "12 Rue Joss",
		City:      "Douala",
		Country:   "CM",
	}
}
