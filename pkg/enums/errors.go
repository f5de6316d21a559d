package enums

import "fmt"

func invalidValue(label, value string) error {
	return fmt.Errorf("invalid %s %q", label, value)
}
