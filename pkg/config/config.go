// Package config loads configuration structs from YAML files and environment variables.
//
// Fields are described with struct tags:
//
//	env:"NAME"        environment variable overriding the field
//	yaml:"name"       key in the YAML file
//	default:"value"   applied when the field is still zero after loading
//	required:"true"   reported as missing when the field stays zero and has no default
//
// Nested structs are walked recursively. After loading, a struct implementing
// Validator has its Validate method called.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Validator is implemented by config structs with cross-field rules.
type Validator interface {
	Validate() error
}

// GetConfigFromEnvVars fills dest from environment variables and defaults only.
func GetConfigFromEnvVars[T any](dest *T) error {
	if err := load(dest); err != nil {
		return err
	}
	return validate(dest)
}

// GetConfig reads the YAML file at path (when non-empty), overlays environment
// variables and defaults, then validates. With allowFileErrors, an unreadable or
// malformed file is ignored and only the environment is used.
func GetConfig[T any](dest *T, path string, allowFileErrors bool) error {
	if path != "" {
		if err := readYAML(dest, path); err != nil && !allowFileErrors {
			return err
		}
	}
	if err := load(dest); err != nil {
		return err
	}
	return validate(dest)
}

func readYAML[T any](dest *T, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator supplied config path
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal YAML from %s: %w", path, err)
	}
	return nil
}

func load[T any](dest *T) error {
	val := reflect.ValueOf(dest).Elem()
	fromEnv := make(map[string]bool)

	if err := applyEnv(val, fromEnv); err != nil {
		return err
	}
	if err := applyDefaults(val, fromEnv); err != nil {
		var zero T
		*dest = zero
		return err
	}
	return nil
}

func validate[T any](dest *T) error {
	if v, ok := any(dest).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return nil
	}
	if v, ok := any(*dest).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

func fieldKey(owner reflect.Type, f reflect.StructField) string {
	return owner.PkgPath() + "." + owner.Name() + "." + f.Name
}

func applyEnv(val reflect.Value, fromEnv map[string]bool) error {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		meta := typ.Field(i)
		if !meta.IsExported() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyEnv(field, fromEnv); err != nil {
				return err
			}
			continue
		}

		name := meta.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		if err := assign(field, raw); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
		fromEnv[fieldKey(typ, meta)] = true
	}
	return nil
}

func applyDefaults(val reflect.Value, fromEnv map[string]bool) error {
	var result error
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		meta := typ.Field(i)
		if !meta.IsExported() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyDefaults(field, fromEnv); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}

		def, hasDefault := meta.Tag.Lookup("default")
		required := isTrue(meta.Tag.Get("required")) && !hasDefault

		if !field.IsZero() {
			continue
		}
		if required {
			result = multierror.Append(result, fmt.Errorf("required field env:%s / yaml:%s is missing",
				meta.Tag.Get("env"), meta.Tag.Get("yaml")))
			continue
		}
		if !hasDefault || def == "" || fromEnv[fieldKey(typ, meta)] {
			continue
		}
		if err := assign(field, def); err != nil {
			result = multierror.Append(result, fmt.Errorf("default for %s: %w", meta.Name, err))
		}
	}
	return result
}

func isTrue(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1"
}

// assign parses raw into field according to the field's type.
func assign(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %q to duration: %w", raw, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("failed to convert %q to int: %w", raw, err)
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("failed to convert %q to float: %w", raw, err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %q to bool: %w", raw, err)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			slice.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(slice)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
