package checkout

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email looks like local@domain.tld.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Normalize trims every field of the customer data.
func (c CustomerData) Normalize() CustomerData {
	return CustomerData{
		Name:     strings.TrimSpace(c.Name),
		Email:    strings.TrimSpace(c.Email),
		Phone:    strings.TrimSpace(c.Phone),
		Notes:    strings.TrimSpace(c.Notes),
		Document: strings.TrimSpace(c.Document),
	}
}

// Validate checks normalized customer data, returning ErrCustomerIncomplete,
// ErrInvalidEmail or ErrInvalidDocument.
func (c CustomerData) Validate() error {
	if c.Name == "" || c.Email == "" {
		return ErrCustomerIncomplete
	}
	if !ValidEmail(c.Email) {
		return ErrInvalidEmail
	}
	if c.Document != "" && !ValidCPF(c.Document) {
		return ErrInvalidDocument
	}
	return nil
}

// validationMessage maps validation errors to notification text.
func validationMessage(err error) string {
	switch err {
	case ErrCustomerIncomplete:
		return "Please fill in your name and e-mail."
	case ErrInvalidEmail:
		return "Please enter a valid e-mail address."
	case ErrInvalidDocument:
		return "Please enter a valid CPF."
	default:
		return err.Error()
	}
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// SplitPhone keeps the digits of phone and splits them into a two-digit
// area code and the remaining subscriber number.
func SplitPhone(phone string) Phone {
	d := digits(phone)
	if len(d) <= 2 {
		return Phone{AreaCode: d}
	}
	return Phone{AreaCode: d[:2], Number: d[2:]}
}

// ValidCPF reports whether s holds a well-formed Brazilian CPF: eleven
// digits, not all equal, with both check digits matching.
func ValidCPF(s string) bool {
	d := digits(s)
	if len(d) != 11 {
		return false
	}
	if strings.Count(d, d[:1]) == 11 {
		return false
	}
	check := func(n int) bool {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		r := (sum * 10) % 11
		if r == 10 {
			r = 0
		}
		return r == int(d[n]-'0')
	}
	return check(9) && check(10)
}
