package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Janine65/jafr-ng-core/pkg/notify"
	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
)

// Errors turns transport failures and error status codes into user-facing
// notifications. Timeouts and 5xx feed the notification center's escalation
// policy; a 403 navigates to the access-denied route; remaining 4xx surface
// as plain toasts. Requests are never retried here.
func Errors(center *notify.Center, nav Navigator, env runtimecfg.Environment) Decorator {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil {
				if center != nil && isTimeout(err) {
					center.ReportServerError("The server did not respond", req.URL.Path)
				}
				return resp, err
			}

			switch {
			case resp.StatusCode >= http.StatusInternalServerError:
				if center != nil {
					center.ReportServerError(
						"The server reported a problem",
						fmt.Sprintf("%s %s returned %s", req.Method, req.URL.Path, resp.Status),
					)
				}
			case resp.StatusCode == http.StatusForbidden:
				if nav != nil {
					nav.NavigateTo(env.Errors.AccessDeniedRoute, nil)
				}
			case resp.StatusCode >= http.StatusBadRequest:
				if center != nil {
					center.Toast(notify.SeverityWarn, "Request rejected",
						fmt.Sprintf("%s %s returned %s", req.Method, req.URL.Path, resp.Status))
				}
			}

			return resp, nil
		})
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
