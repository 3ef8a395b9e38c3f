package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FormValue is the raw text of one form field. It decodes from a JSON string,
// a JSON number or null, so callers may post either.
type FormValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("form value must be a string or a number: %w", err)
	}
	*v = FormValue(n.String())
	return nil
}

// PhoneForm carries the phone usage fields as typed by the applicant.
type PhoneForm struct {
	CallFrequency   FormValue `json:"callFrequency"`
	AvgCallDuration FormValue `json:"avgCallDuration"`
	ContactsCount   FormValue `json:"contactsCount"`
}

// TransactionForm carries the transaction history fields as typed by the applicant.
type TransactionForm struct {
	AvgMonthlyTransactions FormValue `json:"avgMonthlyTransactions"`
	LastTransactionAmount  FormValue `json:"lastTransactionAmount"`
	TransactionHistory     FormValue `json:"transactionHistory"`
}

// ApplicationForm is a loan application before validation.
type ApplicationForm struct {
	MonthlyIncome      FormValue       `json:"monthlyIncome"`
	EmploymentDuration FormValue       `json:"employmentDuration"`
	PhoneData          PhoneForm       `json:"phoneData"`
	TransactionData    TransactionForm `json:"transactionData"`
	Amount             FormValue       `json:"amount"`
	Frequency          FormValue       `json:"frequency"`
	NewAccount         bool            `json:"newAccount"`
}

// LoanRequestForm carries the loan fields of a standalone fraud check.
type LoanRequestForm struct {
	Amount     FormValue `json:"amount"`
	Frequency  FormValue `json:"frequency"`
	NewAccount bool      `json:"newAccount"`
}
