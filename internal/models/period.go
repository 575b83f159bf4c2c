package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// PayPeriod identifies a payroll month. Stored as "YYYY-MM".
type PayPeriod struct {
	Year  int
	Month time.Month
}

// ParsePayPeriod parses the canonical "YYYY-MM" form.
func ParsePayPeriod(raw string) (PayPeriod, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return PayPeriod{}, fmt.Errorf("parse pay period %q: %w", raw, err)
	}
	return PayPeriod{Year: t.Year(), Month: t.Month()}, nil
}

// PayPeriodOf returns the period containing the given instant.
func PayPeriodOf(t time.Time) PayPeriod {
	return PayPeriod{Year: t.Year(), Month: t.Month()}
}

func (p PayPeriod) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether the period is unset.
func (p PayPeriod) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Start returns the first day of the period (UTC midnight).
func (p PayPeriod) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the period (UTC midnight).
func (p PayPeriod) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Contains reports whether the instant falls inside the period month.
func (p PayPeriod) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Value implements driver.Valuer.
func (p PayPeriod) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner.
func (p *PayPeriod) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParsePayPeriod(v)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case []byte:
		parsed, err := ParsePayPeriod(string(v))
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case time.Time:
		*p = PayPeriodOf(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into PayPeriod", src)
	}
}

// MarshalJSON renders the canonical form.
func (p PayPeriod) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", p.String())), nil
}

// UnmarshalJSON parses the canonical form.
func (p *PayPeriod) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid pay period json: %s", data)
	}
	parsed, err := ParsePayPeriod(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
