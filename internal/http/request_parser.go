package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ledger/internal/core"
	"ledger/internal/services"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("tx_type", func(fl validator.FieldLevel) bool {
		_, err := core.ParseTxType(fl.Field().String())
		return err == nil
	})
	return v
}

type nameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type transactionRequest struct {
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Type        string `json:"type" validate:"required,tx_type"`
	Category    string `json:"category" validate:"required,max=100"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	Description string `json:"description" validate:"max=500"`
}

func (req transactionRequest) input() core.TransactionInput {
	t, _ := core.ParseTxType(req.Type)
	return core.TransactionInput{
		Date:        strings.TrimSpace(req.Date),
		Type:        t,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
	}
}

// requestError is a client mistake detected before the service is called.
type requestError struct {
	status int
	field  string
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &requestError{status: http.StatusBadRequest, msg: "invalid JSON body: " + err.Error()}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &requestError{status: http.StatusBadRequest, msg: "request body must contain a single JSON object"}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &requestError{
				status: http.StatusUnprocessableEntity,
				field:  fe.Field(),
				msg:    fmt.Sprintf("failed on '%s' validation", fe.Tag()),
			}
		}
		return &requestError{status: http.StatusBadRequest, msg: err.Error()}
	}
	return nil
}

// parseListOptions reads the type, category and order query parameters.
// Absent parameters select everything; repeated ones form a set.
func parseListOptions(q url.Values) (services.ListOptions, error) {
	var opts services.ListOptions
	if raw, ok := q["type"]; ok {
		opts.Types = []core.TxType{}
		for _, v := range raw {
			t, err := core.ParseTxType(v)
			if err != nil {
				return opts, err
			}
			opts.Types = append(opts.Types, t)
		}
	}
	if raw, ok := q["category"]; ok {
		opts.Categories = append([]string{}, raw...)
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "newest":
	case "oldest":
		opts.Ascending = true
	default:
		return opts, &requestError{status: http.StatusBadRequest, field: "order", msg: "order must be newest or oldest"}
	}
	return opts, nil
}
