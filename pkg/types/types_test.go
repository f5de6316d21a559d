package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func TestAddressValueScan(t *testing.T) {
	addr := Address{Recipient: "Ada", Phone: "+237600000000", Line1: "1 Rue", City: "Douala", Country: "CM"}
	require.NoError(t, addr.Validate())

	value, err := addr.Value()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, addr, decoded)

	var fromBytes Address
	require.NoError(t, fromBytes.Scan([]byte(value.(string))))
	assert.Equal(t, "Douala", fromBytes.City)
}

func TestAddressValidateListsMissingFields(t *testing.T) {
	err := Address{Line1: "1 Rue"}.Validate()
	require.Error(t, err)
	assert.Equal(t, "address: missing city, country, phone, recipient", err.Error())
}

func TestStringMapRoundTrip(t *testing.T) {
	m := StringMap{"phone": "+237600000000", "network": "mtn"}
	value, err := m.Value()
	require.NoError(t, err)

	var decoded StringMap
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, m, decoded)
}

func TestActorID(t *testing.T) {
	assert.Nil(t, SystemActor().ActorID())
	id := uuid.New()
	actor := Actor{UserID: id, Kind: enums.ActorAdmin}
	require.NotNil(t, actor.ActorID())
	assert.Equal(t, id, *actor.ActorID())
	assert.True(t, actor.IsAdmin())
}
