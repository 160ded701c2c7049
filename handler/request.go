package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/carnet-digital/carnet"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"required": "The field '%s' is required.",
	"email":    "The field '%s' must be a valid email address.",
	"max":      "The field '%s' must be no longer than %s characters.",
}

// ValidationError lists the rejected request fields by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid request: " + strings.Join(names, ", ")
}

func (e *ValidationError) Unwrap() error { return carnet.ErrValidation }

// check runs the struct tags of s and converts failures into a ValidationError.
func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: map[string]string{"body": err.Error()}}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	msg, ok := fieldMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("Field '%s' is invalid: %s", fe.Field(), fe.Tag())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(msg, fe.Field())
}

type loginRequest struct {
	Correo      string `json:"correo" validate:"required,email,max=254"`
	Contrasena  string `json:"contrasena" validate:"required,max=128"`
	TipoUsuario string `json:"tipoUsuario" validate:"required,max=64"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=4096"`
}

type logoutRequest struct {
	AccessToken  string `json:"-" validate:"required,max=4096"`
	RefreshToken string `json:"refresh_token" validate:"max=4096"`
}

type unlockRequest struct {
	Correo string `json:"correo" validate:"required,email,max=254"`
}

// parseLogin reads the credentials from the correo/contrasena/tipousuario
// headers, falling back to a JSON body when none of them is present.
func parseLogin(r *http.Request) (loginRequest, error) {
	req := loginRequest{
		Correo:      strings.TrimSpace(r.Header.Get("correo")),
		Contrasena:  r.Header.Get("contrasena"),
		TipoUsuario: strings.TrimSpace(r.Header.Get("tipousuario")),
	}
	if req.Correo == "" && req.Contrasena == "" && req.TipoUsuario == "" {
		if err := decodeBody(r, &req); err != nil {
			return loginRequest{}, err
		}
		req.Correo = strings.TrimSpace(req.Correo)
		req.TipoUsuario = strings.TrimSpace(req.TipoUsuario)
	}
	if err := check(&req); err != nil {
		return loginRequest{}, err
	}
	return req, nil
}

func parseRefresh(r *http.Request) (refreshRequest, error) {
	req := refreshRequest{RefreshToken: strings.TrimSpace(r.Header.Get("refresh_token"))}
	if req.RefreshToken == "" {
		if err := decodeBody(r, &req); err != nil {
			return refreshRequest{}, err
		}
		req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	}
	if err := check(&req); err != nil {
		return refreshRequest{}, err
	}
	return req, nil
}

func parseLogout(r *http.Request, accessToken string) (logoutRequest, error) {
	req := logoutRequest{
		AccessToken:  accessToken,
		RefreshToken: strings.TrimSpace(r.Header.Get("refresh_token")),
	}
	if req.RefreshToken == "" {
		if err := decodeBody(r, &req); err != nil {
			return logoutRequest{}, err
		}
		req.AccessToken = accessToken
		req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	}
	if err := check(&req); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			if _, ok := verr.Fields["AccessToken"]; ok {
				delete(verr.Fields, "AccessToken")
				verr.Fields["token"] = "The access token is required."
			}
		}
		return logoutRequest{}, err
	}
	return req, nil
}

func parseUnlock(r *http.Request) (unlockRequest, error) {
	var req unlockRequest
	if err := decodeBody(r, &req); err != nil {
		return unlockRequest{}, err
	}
	req.Correo = strings.TrimSpace(req.Correo)
	if err := check(&req); err != nil {
		return unlockRequest{}, err
	}
	return req, nil
}

// decodeBody fills dst from a JSON body. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &ValidationError{Fields: map[string]string{"body": "The body must be a JSON object."}}
	}
	return nil
}
