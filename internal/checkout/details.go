package checkout

import (
	"net/mail"
	"strings"
)

// Details are the shipping fields collected next to the hosted payment form.
type Details struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

func (d Details) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"first_name", d.FirstName},
		{"last_name", d.LastName},
		{"email", d.Email},
		{"address", d.Address},
		{"city", d.City},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if strings.TrimSpace(d.Email) != "" {
		if _, err := mail.ParseAddress(d.Email); err != nil {
			missing = append(missing, "email")
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
