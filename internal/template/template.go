package template

import "strings"

// Placeholder tokens recognised in run and output strings.
const (
	KubeconfigToken = "@kubeconfig@"
	NamespaceToken  = "@namespace@"
)

// Context holds the site values substituted into command text.
type Context struct {
	// Kubernetes gates substitution; for other platforms the tokens pass
	// through unchanged.
	Kubernetes bool
	Kubeconfig string
	Namespace  string
}

// Resolve replaces the kubeconfig and namespace tokens in s. It is plain
// string replacement, so literal token text is replaced too.
func Resolve(s string, ctx *Context) string {
	if ctx == nil || !ctx.Kubernetes {
		return s
	}
	s = strings.ReplaceAll(s, KubeconfigToken, ctx.Kubeconfig)
	s = strings.ReplaceAll(s, NamespaceToken, ctx.Namespace)
	return s
}

// ExpandWorkDir replaces every "~" in a run command with dir.
func ExpandWorkDir(s, dir string) string {
	return strings.ReplaceAll(s, "~", dir)
}
