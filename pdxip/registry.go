package pdxip

import (
	"fmt"
	"sort"
)

// Factory builds a client for one module model.
type Factory func(Options) *Client

// models is the explicit registry of supported module models. Adapters
// are resolved from here, never by runtime name lookup, so an unsupported
// model fails at startup instead of deep inside a session.
var models = map[string]Factory{
	"HD77": newHD77,
	"HD78": newHD78,
	"HD88": newHD88,
}

func newHD77(opts Options) *Client { return newClient("HD77", opts) }
func newHD78(opts Options) *Client { return newClient("HD78", opts) }
func newHD88(opts Options) *Client { return newClient("HD88", opts) }

// NewForModel builds a client for the given model.
func NewForModel(model string, opts Options) (*Client, error) {
	factory, ok := models[model]
	if !ok {
		return nil, fmt.Errorf(
			"unsupported module model %q, supported: %v",
			model,
			SupportedModels(),
		)
	}
	return factory(opts), nil
}

// SupportedModels lists the registered models, sorted.
func SupportedModels() []string {
	out := make([]string, 0, len(models))
	for m := range models {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
