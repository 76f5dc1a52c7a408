package loader

import (
	"strings"

	"go.uber.org/zap"

	"github.com/daimatz/mirror/pkg/classfile"
)

// Policy decides whether a class may be read. It returns a reason for
// denial, or "" to allow.
type Policy func(name string) (reason string)

// DenyPackages refuses every class inside any of the given packages or
// their subpackages. Prefixes may use dots or slashes.
func DenyPackages(prefixes ...string) Policy {
	normalized := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.Trim(strings.ReplaceAll(p, ".", "/"), "/")
		if p != "" {
			normalized = append(normalized, p+"/")
		}
	}
	return func(name string) string {
		for _, p := range normalized {
			if strings.HasPrefix(name, p) {
				return "package " + strings.TrimSuffix(p, "/") + " is denied"
			}
		}
		return ""
	}
}

// RestrictedClassLoader applies a Policy in front of another loader.
type RestrictedClassLoader struct {
	inner  ClassLoader
	policy Policy
	logger *zap.Logger
}

// Restrict wraps inner so that classes refused by policy fail with
// *AccessDeniedError before inner is asked.
func Restrict(inner ClassLoader, policy Policy, opts ...Option) *RestrictedClassLoader {
	o := newOptions(opts)
	return &RestrictedClassLoader{inner: inner, policy: policy, logger: o.logger}
}

func (cl *RestrictedClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if reason := cl.policy(name); reason != "" {
		cl.logger.Debug("denied class", zap.String("class", name), zap.String("reason", reason))
		return nil, &AccessDeniedError{Name: name, Reason: reason}
	}
	return cl.inner.LoadClass(name)
}
