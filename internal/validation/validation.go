package validation

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"MicroloanCore/internal/domain"
)

const (
	msgInvalidNumber   = "Please enter a valid number"
	msgAmountTooLarge  = "Amount exceeds maximum limit"
	msgFreqWhole       = "Frequency must be a whole number"
	fieldAmount        = "amount"
	fieldFrequency     = "frequency"
	fieldIncome        = "monthlyIncome"
	fieldEmployment    = "employmentDuration"
	fieldCallFrequency = "phoneData.callFrequency"
	fieldCallDuration  = "phoneData.avgCallDuration"
	fieldContacts      = "phoneData.contactsCount"
	fieldMonthlyTx     = "transactionData.avgMonthlyTransactions"
	fieldLastTxAmount  = "transactionData.lastTransactionAmount"
	fieldHistoryMonths = "transactionData.transactionHistory"
)

// MaxLoanAmount is the largest amount a single request may ask for.
var MaxLoanAmount = decimal.NewFromInt(1_000_000)

var fieldLabels = map[string]string{
	fieldAmount:        "Amount",
	fieldFrequency:     "Frequency",
	fieldIncome:        "Monthly income",
	fieldEmployment:    "Employment duration",
	fieldCallFrequency: "Call frequency",
	fieldCallDuration:  "Average call duration",
	fieldContacts:      "Contacts count",
	fieldMonthlyTx:     "Average monthly transactions",
	fieldLastTxAmount:  "Last transaction amount",
	fieldHistoryMonths: "Transaction history",
}

// applicationInput is the typed application the field rules are declared on.
// The form tag is the field key reported back to callers.
type applicationInput struct {
	MonthlyIncome          float64         `form:"monthlyIncome" validate:"finite,gt=0"`
	EmploymentDuration     float64         `form:"employmentDuration" validate:"finite,gte=0"`
	CallFrequency          float64         `form:"phoneData.callFrequency" validate:"finite,gte=0"`
	AvgCallDuration        float64         `form:"phoneData.avgCallDuration" validate:"finite,gte=0"`
	ContactsCount          float64         `form:"phoneData.contactsCount" validate:"finite,gte=0"`
	AvgMonthlyTransactions float64         `form:"transactionData.avgMonthlyTransactions" validate:"finite,gte=0"`
	LastTransactionAmount  float64         `form:"transactionData.lastTransactionAmount" validate:"finite,gte=0"`
	TransactionHistory     float64         `form:"transactionData.transactionHistory" validate:"finite,gte=0"`
	Amount                 decimal.Decimal `form:"amount" validate:"gt=0,loanlimit"`
	Frequency              int64           `form:"frequency" validate:"min=1,max=2147483647"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	_ = v.RegisterValidation("loanlimit", func(fl validator.FieldLevel) bool {
		return fl.Field().Float() <= MaxLoanAmount.InexactFloat64()
	})
	return v
}

func message(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	switch fe.Tag() {
	case "finite":
		return msgInvalidNumber
	case "gt":
		return label + " must be greater than " + fe.Param()
	case "gte":
		return label + " cannot be negative"
	case "min":
		return label + " must be at least " + fe.Param()
	case "max":
		return label + " is too large"
	case "loanlimit":
		return msgAmountTooLarge
	default:
		return label + " is invalid"
	}
}

// check runs the declared rules and keys the failures by form field.
func check(in applicationInput) domain.FieldErrors {
	errs := domain.FieldErrors{}
	err := validate.Struct(in)
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("application", err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

// parseNumber turns one raw field into a decimal or a presence/format message.
func parseNumber(field string, raw FormValue) (decimal.Decimal, string) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return decimal.Decimal{}, fieldLabels[field] + " is required"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, msgInvalidNumber
	}
	return d, ""
}

// parseFrequency accepts whole numbers only. Out-of-range values saturate so
// the declared bounds report them.
func parseFrequency(raw FormValue) (int64, string) {
	d, msg := parseNumber(fieldFrequency, raw)
	if msg != "" {
		return 0, msg
	}
	if !d.IsInteger() {
		return 0, msgFreqWhole
	}
	switch {
	case d.GreaterThan(decimal.NewFromInt(math.MaxInt64)):
		return math.MaxInt64, ""
	case d.LessThan(decimal.NewFromInt(math.MinInt64)):
		return math.MinInt64, ""
	}
	return d.IntPart(), ""
}

// merge adds rule failures for fields that parsed cleanly.
func merge(parseErrs, ruleErrs domain.FieldErrors, fields ...string) domain.FieldErrors {
	for _, field := range fields {
		if _, failed := parseErrs[field]; failed {
			continue
		}
		parseErrs.Add(field, ruleErrs[field])
	}
	return parseErrs
}

// ValidateAmount returns the amount's validation message, or "" when valid.
func ValidateAmount(raw string) string {
	amount, msg := parseNumber(fieldAmount, FormValue(raw))
	if msg != "" {
		return msg
	}
	return check(applicationInput{Amount: amount})[fieldAmount]
}

// ValidateFrequency returns the frequency's validation message, or "" when valid.
func ValidateFrequency(raw string) string {
	freq, msg := parseFrequency(FormValue(raw))
	if msg != "" {
		return msg
	}
	return check(applicationInput{Frequency: freq})[fieldFrequency]
}

// ParseApplication validates a raw form as a whole and, when every field is
// valid, builds the immutable profile and request from it.
func ParseApplication(form ApplicationForm) (domain.ApplicantProfile, domain.LoanRequest, domain.FieldErrors) {
	parseErrs := domain.FieldErrors{}
	num := func(field string, raw FormValue) float64 {
		d, msg := parseNumber(field, raw)
		parseErrs.Add(field, msg)
		return d.InexactFloat64()
	}

	in := applicationInput{
		MonthlyIncome:          num(fieldIncome, form.MonthlyIncome),
		EmploymentDuration:     num(fieldEmployment, form.EmploymentDuration),
		CallFrequency:          num(fieldCallFrequency, form.PhoneData.CallFrequency),
		AvgCallDuration:        num(fieldCallDuration, form.PhoneData.AvgCallDuration),
		ContactsCount:          num(fieldContacts, form.PhoneData.ContactsCount),
		AvgMonthlyTransactions: num(fieldMonthlyTx, form.TransactionData.AvgMonthlyTransactions),
		LastTransactionAmount:  num(fieldLastTxAmount, form.TransactionData.LastTransactionAmount),
		TransactionHistory:     num(fieldHistoryMonths, form.TransactionData.TransactionHistory),
	}
	var msg string
	in.Amount, msg = parseNumber(fieldAmount, form.Amount)
	parseErrs.Add(fieldAmount, msg)
	in.Frequency, msg = parseFrequency(form.Frequency)
	parseErrs.Add(fieldFrequency, msg)

	fields := make([]string, 0, len(fieldLabels))
	for field := range fieldLabels {
		fields = append(fields, field)
	}
	errs := merge(parseErrs, check(in), fields...)
	if !errs.Empty() {
		return domain.ApplicantProfile{}, domain.LoanRequest{}, errs
	}

	profile, request := in.toDomain(form.NewAccount)
	return profile, request, errs
}

// ParseLoanRequest validates the amount and frequency of a standalone fraud
// check.
func ParseLoanRequest(form LoanRequestForm) (domain.LoanRequest, domain.FieldErrors) {
	parseErrs := domain.FieldErrors{}
	var in applicationInput
	var msg string
	in.Amount, msg = parseNumber(fieldAmount, form.Amount)
	parseErrs.Add(fieldAmount, msg)
	in.Frequency, msg = parseFrequency(form.Frequency)
	parseErrs.Add(fieldFrequency, msg)

	errs := merge(parseErrs, check(in), fieldAmount, fieldFrequency)
	if !errs.Empty() {
		return domain.LoanRequest{}, errs
	}
	_, request := in.toDomain(form.NewAccount)
	return request, errs
}

// CheckApplication applies the form rules to already-typed values.
func CheckApplication(profile domain.ApplicantProfile, request domain.LoanRequest) domain.FieldErrors {
	return check(fromDomain(profile, request))
}

// CheckLoanRequest applies the amount and frequency rules to a typed request.
func CheckLoanRequest(request domain.LoanRequest) domain.FieldErrors {
	all := check(fromDomain(domain.ApplicantProfile{}, request))
	return merge(domain.FieldErrors{}, all, fieldAmount, fieldFrequency)
}

func fromDomain(profile domain.ApplicantProfile, request domain.LoanRequest) applicationInput {
	return applicationInput{
		MonthlyIncome:          profile.MonthlyIncome,
		EmploymentDuration:     profile.EmploymentDurationYears,
		CallFrequency:          profile.Phone.CallFrequency,
		AvgCallDuration:        profile.Phone.AvgCallDuration,
		ContactsCount:          profile.Phone.ContactsCount,
		AvgMonthlyTransactions: profile.Transactions.AvgMonthlyTransactions,
		LastTransactionAmount:  profile.Transactions.LastTransactionAmount,
		TransactionHistory:     profile.Transactions.HistoryMonths,
		Amount:                 request.Amount,
		Frequency:              int64(request.Frequency),
	}
}

func (in applicationInput) toDomain(newAccount bool) (domain.ApplicantProfile, domain.LoanRequest) {
	profile := domain.ApplicantProfile{
		MonthlyIncome:           in.MonthlyIncome,
		EmploymentDurationYears: in.EmploymentDuration,
		Phone: domain.PhoneUsage{
			CallFrequency:   in.CallFrequency,
			AvgCallDuration: in.AvgCallDuration,
			ContactsCount:   in.ContactsCount,
		},
		Transactions: domain.TransactionHistory{
			AvgMonthlyTransactions: in.AvgMonthlyTransactions,
			LastTransactionAmount:  in.LastTransactionAmount,
			HistoryMonths:          in.TransactionHistory,
		},
	}
	request := domain.LoanRequest{
		Amount:       in.Amount,
		Frequency:    int(in.Frequency),
		IsNewAccount: newAccount,
	}
	return profile, request
}
