package transport

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/Janine65/jafr-ng-core/pkg/envelope"
	"github.com/Janine65/jafr-ng-core/pkg/notify"
	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
)

// SuppressErrorToastHeader marks a request whose envelope errors the caller
// handles itself; the pipeline strips it before the request leaves the
// process.
const SuppressErrorToastHeader = "X-Suppress-Error-Toast"

// stageMismatchParam names the query parameter carrying the server stage on
// the mismatch error route.
const stageMismatchParam = "serverStage"

// Envelope unwraps enveloped JSON responses. The payload replaces the body,
// envelope metadata is recorded on the tracker, and embedded error messages
// become toasts unless the request opted out. A stage mismatch between
// client and server navigates to the mismatch route but the unwrapped
// payload is still delivered, so in-flight views keep their data.
func Envelope(tracker *envelope.MetaTracker, center *notify.Center, nav Navigator, env runtimecfg.Environment) Decorator {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			suppressToasts := req.Header.Get(SuppressErrorToastHeader) != ""
			if suppressToasts {
				req = cloneRequest(req)
				req.Header.Del(SuppressErrorToastHeader)
			}

			resp, err := next.RoundTrip(req)
			if err != nil {
				return resp, err
			}

			if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
				return resp, nil
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, err
			}

			unwrapped, err := envelope.Unwrap(body)
			if err != nil || unwrapped.Kind == envelope.KindNone {
				resp.Body = io.NopCloser(bytes.NewReader(body))
				return resp, nil
			}

			if tracker != nil {
				tracker.Record(unwrapped.Meta)
			}

			if center != nil && !suppressToasts {
				for _, message := range unwrapped.Errors {
					center.Toast(notify.SeverityError, "Server reported an error", message)
				}
			}

			if nav != nil && stageMismatch(env.Stage, unwrapped.Meta.Stage) {
				nav.NavigateTo(env.Errors.MismatchRoute, map[string]string{
					stageMismatchParam: unwrapped.Meta.Stage,
				})
			}

			resp.Body = io.NopCloser(bytes.NewReader(unwrapped.Payload))
			resp.ContentLength = int64(len(unwrapped.Payload))
			resp.Header.Del("Content-Length")
			return resp, nil
		})
	}
}

func stageMismatch(client, server string) bool {
	if client == "" || server == "" {
		return false
	}
	return !strings.EqualFold(client, server)
}
