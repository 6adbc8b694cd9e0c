package checkout

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// Field names match the payment form inputs.
const (
	FieldCardName   = "cardName"
	FieldCardNumber = "cardNumber"
	FieldCardExpiry = "cardExpiry"
	FieldCardCVC    = "cardCVC"
	FieldEmail      = "email"
	FieldPhone      = "phone"
)

var (
	expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)
	emailPattern  = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// PaymentForm is what the customer submits on the payment view.
type PaymentForm struct {
	CardName   string `json:"cardName"`
	CardNumber string `json:"cardNumber"`
	CardExpiry string `json:"cardExpiry"`
	CardCVC    string `json:"cardCVC"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// Normalize applies the input masks of the payment form: card number in
// groups of four (16 digits max), expiry as MM/YY, CVC up to four digits
// and a digits-only phone.
func (f PaymentForm) Normalize() PaymentForm {
	number := digitsOnly(f.CardNumber)
	if len(number) > 16 {
		number = number[:16]
	}
	f.CardNumber = groupDigits(number, 4, " ")

	expiry := digitsOnly(f.CardExpiry)
	if len(expiry) > 4 {
		expiry = expiry[:4]
	}
	if len(expiry) > 2 {
		expiry = expiry[:2] + "/" + expiry[2:]
	}
	f.CardExpiry = expiry

	cvc := digitsOnly(f.CardCVC)
	if len(cvc) > 4 {
		cvc = cvc[:4]
	}
	f.CardCVC = cvc

	f.Phone = digitsOnly(f.Phone)
	return f
}

// FieldErrors maps a form field to its message. Empty means valid.
type FieldErrors map[string]string

// Fields returns the failing field names in a stable order.
func (fe FieldErrors) Fields() []string {
	return slices.Sorted(maps.Keys(fe))
}

// Validate checks every field and reports all failures at once.
func (f PaymentForm) Validate() FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(f.CardName) == "" {
		errs[FieldCardName] = "El nombre es obligatorio"
	}

	number := stripSeparators(f.CardNumber)
	switch {
	case number == "":
		errs[FieldCardNumber] = "El número de tarjeta es obligatorio"
	case digitsOnly(number) != number:
		errs[FieldCardNumber] = "El número de tarjeta solo puede contener dígitos"
	case len(number) < 16:
		errs[FieldCardNumber] = "El número de tarjeta debe tener 16 dígitos"
	}

	switch expiry := strings.TrimSpace(f.CardExpiry); {
	case expiry == "":
		errs[FieldCardExpiry] = "La fecha de caducidad es obligatoria"
	case !expiryPattern.MatchString(expiry):
		errs[FieldCardExpiry] = "Formato inválido. Use MM/YY"
	}

	switch cvc := strings.TrimSpace(f.CardCVC); {
	case cvc == "":
		errs[FieldCardCVC] = "El código de seguridad es obligatorio"
	case digitsOnly(cvc) != cvc || len(cvc) < 3 || len(cvc) > 4:
		errs[FieldCardCVC] = "El código debe tener 3 o 4 dígitos"
	}

	switch email := strings.TrimSpace(f.Email); {
	case email == "":
		errs[FieldEmail] = "El email es obligatorio"
	case !emailPattern.MatchString(email):
		errs[FieldEmail] = "Email inválido"
	}

	if strings.TrimSpace(f.Phone) == "" {
		errs[FieldPhone] = "El teléfono es obligatorio"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, s)
}

func groupDigits(s string, size int, sep string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && i%size == 0 {
			b.WriteString(sep)
		}
		b.WriteRune(r)
	}
	return b.String()
}
