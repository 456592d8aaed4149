package uri

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// varPattern matches ${name}.
var varPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// UndefinedVariableError reports ${name} placeholders without a value.
type UndefinedVariableError struct {
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined uri variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined uri variables: %s", strings.Join(e.Names, ", "))
}

// vars holds the values substituted into URIs.
type vars struct {
	mu     sync.RWMutex
	values map[string]string
}

func (v *vars) set(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.values == nil {
		v.values = make(map[string]string)
	}
	v.values[name] = value
}

func (v *vars) unset(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.values, name)
}

func (v *vars) get(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.values[name]
	return s, ok
}

// expand substitutes every ${name} in s. All undefined names are reported
// together.
func (v *vars) expand(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()

	var missing []string
	out := varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := v.values[name]; ok {
			return val
		}
		missing = append(missing, name)
		return match
	})
	if len(missing) > 0 {
		return s, &UndefinedVariableError{Names: missing}
	}
	return out, nil
}
