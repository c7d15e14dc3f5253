package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	skerrors "github.com/stevehiehn/skewer/internal/errors"
)

const (
	platformEnv   = "SKUPPER_PLATFORM"
	kubeconfigEnv = "KUBECONFIG"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// Check validates a resolved model before anything is executed or rendered.
// It fails on the first problem found.
func Check(m *Model) error {
	if err := checkStruct(m, m.String()); err != nil {
		return err
	}
	if m.Sites == nil || m.Sites.Len() == 0 {
		return skerrors.NewValidationError(fmt.Sprintf("%s has no 'sites' attribute", m), "Declare at least one site")
	}
	if m.Steps == nil {
		return skerrors.Validationf("%s has no 'steps' attribute", m)
	}

	for _, site := range m.SiteList() {
		if err := CheckSite(site); err != nil {
			return err
		}
	}
	for _, step := range m.Steps {
		if err := CheckStep(m, step); err != nil {
			return err
		}
	}
	return nil
}

// CheckSite validates platform-specific site requirements.
func CheckSite(site *Site) error {
	if err := checkStruct(site, site.String()); err != nil {
		var re *skerrors.RunError
		if errors.As(err, &re) {
			re.Site = site.Name
		}
		return err
	}

	switch site.Platform {
	case Kubernetes:
		if _, ok := site.Env[kubeconfigEnv]; !ok {
			return &skerrors.RunError{
				Type:    skerrors.ValidationError,
				Site:    site.Name,
				Message: fmt.Sprintf("Kubernetes %s has no %s environment variable", site, kubeconfigEnv),
			}
		}
	case Podman:
		platform, ok := site.Env[platformEnv]
		if !ok {
			return &skerrors.RunError{
				Type:    skerrors.ValidationError,
				Site:    site.Name,
				Message: fmt.Sprintf("Podman %s has no %s environment variable", site, platformEnv),
			}
		}
		if platform != string(Podman) {
			return &skerrors.RunError{
				Type:    skerrors.ValidationError,
				Site:    site.Name,
				Message: fmt.Sprintf("Podman %s environment variable %s has an illegal value: %s", site, platformEnv, platform),
			}
		}
	}
	return nil
}

// CheckStep validates a step's title and site references.
func CheckStep(m *Model, step *Step) error {
	if err := checkStruct(step, step.String()); err != nil {
		var re *skerrors.RunError
		if errors.As(err, &re) {
			re.Step = step.String()
		}
		return err
	}

	for _, sc := range step.CommandList() {
		if _, ok := m.Site(sc.Site); !ok {
			return &skerrors.RunError{
				Type:    skerrors.ValidationError,
				Step:    step.String(),
				Message: fmt.Sprintf("unknown site name '%s' in commands for %s", sc.Site, step),
			}
		}
	}
	return nil
}

func checkStruct(v any, owner string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required", "required_if":
		msg = fmt.Sprintf("%s has no '%s' attribute", owner, fe.Field())
	default:
		msg = fmt.Sprintf("%s attribute '%s' has an illegal value: %v", owner, fe.Field(), fe.Value())
	}
	return skerrors.NewValidationError(msg, "")
}
