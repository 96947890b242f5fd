package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their configuration key (logging.level)
// rather than by Go field name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateSnapshot, SnapshotConfig{})
	v.RegisterStructValidation(validateCatalog, CatalogConfig{})
	return v
}

// Validate checks cfg and returns every violation joined into one error.
// Log levels are accepted in either case; ApplyDefaults normalizes them.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		key := strings.TrimPrefix(e.Namespace(), "Config.")
		errs = append(errs, fmt.Errorf("%s %s", key, describe(e)))
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", e.Param(), e.Value())
	case "min":
		return fmt.Sprintf("must be at least %s, got %v", e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("must be at most %s, got %v", e.Param(), e.Value())
	case "snapshot_enabled":
		return "is required when snapshots are enabled"
	case "badger_catalog":
		return "is required for the badger catalog"
	default:
		return fmt.Sprintf("failed %q validation (value: %v)", e.Tag(), e.Value())
	}
}

// validateSnapshot requires a bucket and region once s3:// locations are on.
func validateSnapshot(sl validator.StructLevel) {
	s := sl.Current().Interface().(SnapshotConfig)
	if !s.Enabled {
		return
	}
	for _, key := range []string{"bucket", "region"} {
		if v, _ := s.S3[key].(string); v == "" {
			sl.ReportError(s.S3[key], "s3."+key, "S3", "snapshot_enabled", "")
		}
	}
}

func validateCatalog(sl validator.StructLevel) {
	c := sl.Current().Interface().(CatalogConfig)
	if c.Type != "badger" {
		return
	}
	if v, _ := c.Badger["db_path"].(string); v == "" {
		sl.ReportError(c.Badger["db_path"], "badger.db_path", "Badger", "badger_catalog", "")
	}
}
