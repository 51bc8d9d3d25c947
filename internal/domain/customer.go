package domain

import (
	"net/mail"
	"strings"
	"time"
)

// Customer описывает покупателя магазина.
type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет обязательные поля покупателя.
func (c *Customer) Validate() []error {
	var errs []error

	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		errs = append(errs, ErrCustomerEmailInvalid)
	}

	return errs
}
