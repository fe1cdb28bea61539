package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lgalvao/sgc-sub008/internal/subprocesso"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("data", func(fl validator.FieldLevel) bool {
		_, err := parseData(fl.Field().String())
		return err == nil
	})
	return v
}

// acaoPayload é o corpo comum das ações sobre subprocessos.
type acaoPayload struct {
	Observacoes   string `json:"observacoes" validate:"max=2000"`
	Justificativa string `json:"justificativa" validate:"max=2000"`
	DataLimite    string `json:"dataLimite" validate:"omitempty,data"`
}

type blocoPayload struct {
	acaoPayload
	Unidades []int64 `json:"unidades" validate:"required,min=1,dive,gt=0"`
}

type iniciarPayload struct {
	Unidades   []int64 `json:"unidades" validate:"required,min=1,dive,gt=0"`
	DataLimite string  `json:"dataLimite" validate:"required,data"`
}

func (p *acaoPayload) Normalize() {
	p.Observacoes = strings.TrimSpace(p.Observacoes)
	p.Justificativa = strings.TrimSpace(p.Justificativa)
	p.DataLimite = strings.TrimSpace(p.DataLimite)
}

func (p acaoPayload) dados() subprocesso.Dados {
	d := subprocesso.Dados{Observacoes: p.Observacoes, Justificativa: p.Justificativa}
	if p.DataLimite != "" {
		if t, err := parseData(p.DataLimite); err == nil {
			d.DataLimite = &t
		}
	}
	return d
}

// parseData aceita data simples (AAAA-MM-DD) ou RFC 3339.
func parseData(valor string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, valor); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, valor)
}

// decodeAndValidate lê o JSON do corpo e aplica as regras de validação. Corpo
// vazio equivale a objeto vazio. Em caso de falha, a resposta já foi escrita.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "VALIDACAO", "JSON inválido", nil)
		return false
	}

	if n, ok := dst.(interface{ Normalize() }); ok {
		n.Normalize()
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			WriteError(w, http.StatusBadRequest, "VALIDACAO", "dados inválidos", camposInvalidos(verrs))
			return false
		}
		WriteError(w, http.StatusBadRequest, "VALIDACAO", "dados inválidos", nil)
		return false
	}
	return true
}

func camposInvalidos(verrs validator.ValidationErrors) map[string]string {
	campos := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		campos[fe.Field()] = fe.Tag()
	}
	return campos
}
