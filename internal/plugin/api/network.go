package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// Per-request timeout clamp for the network capability.
const (
	minNetworkTimeout = 1 * time.Second
	maxNetworkTimeout = 300 * time.Second
)

// NetworkModule gives a plugin bounded outbound HTTP. Every call returns the
// same result shape {success, status, body, headers, error} and never throws;
// the manifest's allow-list is enforced before any request leaves the host.
type NetworkModule struct {
	deps *Deps
}

// NewNetworkModule creates the network capability.
func NewNetworkModule(deps *Deps) *NetworkModule {
	return &NetworkModule{deps: deps}
}

// Name returns the capability name.
func (m *NetworkModule) Name() string { return "network" }

// RequiredPermission returns the gating permission.
func (m *NetworkModule) RequiredPermission() security.Permission {
	return security.PermissionNetwork
}

type netResult struct {
	Success bool              `json:"success"`
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
	Error   string            `json:"error,omitempty"`
}

func netFailure(msg string) netResult {
	return netResult{Headers: map[string]string{}, Error: msg}
}

func (m *NetworkModule) clampTimeout(opts map[string]any) time.Duration {
	d := m.deps.Limits.NetworkTimeout
	if raw, ok := opts["timeout"]; ok {
		switch v := raw.(type) {
		case int64:
			d = time.Duration(v) * time.Second
		case float64:
			d = time.Duration(v * float64(time.Second))
		}
	}
	if d < minNetworkTimeout {
		d = minNetworkTimeout
	}
	if d > maxNetworkTimeout {
		d = maxNetworkTimeout
	}
	return d
}

func optHeaders(opts map[string]any) map[string]string {
	out := map[string]string{}
	raw, ok := opts["headers"].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func (m *NetworkModule) do(method, url string, body io.Reader, contentType string, opts map[string]any) netResult {
	if m.deps.AllowURL != nil && !m.deps.AllowURL(url) {
		return netFailure("url not allowed by manifest")
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return netFailure(err.Error())
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range optHeaders(opts) {
		req.Header.Set(k, v)
	}

	client := m.deps.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	// A fresh timeout per call; the shape of the shared client is not
	// mutated.
	c := *client
	c.Timeout = m.clampTimeout(opts)

	resp, err := c.Do(req)
	if err != nil {
		return netFailure(err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return netFailure(err.Error())
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return netResult{
		Success: resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:  resp.StatusCode,
		Body:    string(data),
		Headers: headers,
	}
}

// Register attaches the network object to the api root.
func (m *NetworkModule) Register(rt *js.Runtime, root *goja.Object) error {
	vm := rt.VM()
	obj := vm.NewObject()

	if err := obj.Set("get", func(call goja.FunctionCall) goja.Value {
		url := call.Argument(0).String()
		opts := exportMap(call.Argument(1))
		return vm.ToValue(m.do(http.MethodGet, url, nil, "", opts))
	}); err != nil {
		return err
	}
	if err := obj.Set("post", func(call goja.FunctionCall) goja.Value {
		url := call.Argument(0).String()
		opts := exportMap(call.Argument(2))

		var body io.Reader
		contentType := ""
		arg := call.Argument(1)
		if !goja.IsUndefined(arg) && !goja.IsNull(arg) {
			switch v := arg.Export().(type) {
			case string:
				body = strings.NewReader(v)
				contentType = "text/plain"
			default:
				data, err := json.Marshal(v)
				if err != nil {
					return vm.ToValue(netFailure("body not serializable: " + err.Error()))
				}
				body = strings.NewReader(string(data))
				contentType = "application/json"
			}
		}
		return vm.ToValue(m.do(http.MethodPost, url, body, contentType, opts))
	}); err != nil {
		return err
	}

	return root.Set(m.Name(), obj)
}
