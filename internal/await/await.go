// Package await implements the blocking readiness waits. Each wait polls at
// a fixed interval until its condition holds or a poll fails after a
// wall-clock deadline fixed when the wait starts.
package await

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/dustin/go-humanize"

	skerrors "github.com/stevehiehn/skewer/internal/errors"
	"github.com/stevehiehn/skewer/internal/model"
	"github.com/stevehiehn/skewer/internal/probe"
	"github.com/stevehiehn/skewer/internal/runner"
	"github.com/stevehiehn/skewer/internal/scope"
)

const (
	DefaultTimeout  = 240 * time.Second
	DefaultInterval = 5 * time.Second
)

var (
	ConsoleService = model.MustParseResource("service/skupper")
	ConsoleSecret  = model.MustParseResource("secret/skupper-console-users")
	ConsoleURL     = "https://{}:8010/"
	ConsoleUser    = "admin"
)

var errNotReady = errors.New("not ready")

// Poller runs the readiness waits against a site context.
type Poller struct {
	exec runner.Executor
	http probe.HTTPChecker

	Timeout  time.Duration
	Interval time.Duration
}

// New creates a poller with the default timeout and interval.
func New(exec runner.Executor, http probe.HTTPChecker) *Poller {
	return &Poller{
		exec:     exec,
		http:     http,
		Timeout:  DefaultTimeout,
		Interval: DefaultInterval,
	}
}

// poll calls check until it succeeds. Failed checks are never surfaced;
// only a failed check at or after start+Timeout is an error. check always
// runs at least once, and the last delay is cut short to poll at the
// deadline.
func (p *Poller) poll(ctx context.Context, sc *scope.Context, what string, start time.Time, check func() error) error {
	deadline := start.Add(p.Timeout)
	var expired bool

	err := retry.Do(
		func() error {
			sc.Logger.Info("waiting for " + what)
			return check()
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.DelayType(func(uint, error, *retry.Config) time.Duration {
			return min(p.Interval, max(time.Until(deadline), 0))
		}),
		retry.RetryIf(func(error) bool {
			expired = !time.Now().Before(deadline)
			return !expired
		}),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if expired {
		re := skerrors.NewTimeoutError(fmt.Sprintf("timed out waiting for %s after %s", what, elapsed(start)))
		re.Site = sc.Label
		return re
	}
	return err
}

func elapsed(start time.Time) string {
	d := time.Since(start)
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return strings.TrimSpace(humanize.RelTime(start, time.Now(), "", ""))
}

func (p *Poller) succeeds(ctx context.Context, sc *scope.Context, command string) error {
	res, err := p.exec.Run(ctx, command, sc.Quiet(false))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return errNotReady
	}
	return nil
}

// AwaitResource waits until r exists. A deployment must then also become
// available; if it does not, its logs are printed and the error returned.
func (p *Poller) AwaitResource(ctx context.Context, sc *scope.Context, r model.Resource) error {
	start := time.Now()

	err := p.poll(ctx, sc, fmt.Sprintf("%s to become available", r), start, func() error {
		return p.succeeds(ctx, sc, "kubectl get "+r.String())
	})
	if err != nil {
		return err
	}

	if r.Kind != model.KindDeployment {
		return nil
	}

	wait := fmt.Sprintf("kubectl wait --for condition=available --timeout %s %s", p.Timeout, r)
	if _, err := p.exec.Run(ctx, wait, sc.Quiet(true)); err != nil {
		_, _ = p.exec.Run(ctx, "kubectl logs "+r.String(), sc.Options(false))
		return err
	}
	return nil
}

// AwaitExternalIP waits until svc exists and has a load-balancer ingress,
// and returns its address.
func (p *Poller) AwaitExternalIP(ctx context.Context, sc *scope.Context, svc model.Resource) (string, error) {
	if svc.Kind != model.KindService {
		return "", skerrors.Validationf("%s is not a service", svc)
	}

	start := time.Now()
	if err := p.AwaitResource(ctx, sc, svc); err != nil {
		return "", err
	}

	ingress := fmt.Sprintf("kubectl get %s -o jsonpath='{.status.loadBalancer.ingress}'", svc)
	err := p.poll(ctx, sc, fmt.Sprintf("external IP from %s to become available", svc), start, func() error {
		res, err := p.exec.Run(ctx, ingress, sc.Quiet(false))
		if err != nil {
			return err
		}
		if res.ExitCode != 0 || strings.TrimSpace(res.Stdout) == "" {
			return errNotReady
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	res, err := p.exec.Run(ctx, fmt.Sprintf("kubectl get %s -o jsonpath='{.status.loadBalancer.ingress[0].ip}'", svc), sc.Quiet(true))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// AwaitHTTPOK waits for svc's external address, fills it into urlTemplate
// at "{}" and waits until a GET on the result succeeds. HTTPS URLs skip
// certificate verification.
func (p *Poller) AwaitHTTPOK(ctx context.Context, sc *scope.Context, svc model.Resource, urlTemplate, user, password string) error {
	start := time.Now()

	ip, err := p.AwaitExternalIP(ctx, sc, svc)
	if err != nil {
		return err
	}

	url := FormatURL(urlTemplate, ip)
	opts := probe.Options{
		Insecure: strings.HasPrefix(url, "https"),
		User:     user,
		Password: password,
	}

	return p.poll(ctx, sc, "HTTP OK from "+url, start, func() error {
		return p.http.Get(ctx, url, opts)
	})
}

// AwaitConsoleOK waits until the Skupper console answers with the admin
// credentials.
func (p *Poller) AwaitConsoleOK(ctx context.Context, sc *scope.Context) error {
	password, err := p.ConsolePassword(ctx, sc)
	if err != nil {
		return err
	}
	return p.AwaitHTTPOK(ctx, sc, ConsoleService, ConsoleURL, ConsoleUser, password)
}

// ConsolePassword reads and decodes the console admin password.
func (p *Poller) ConsolePassword(ctx context.Context, sc *scope.Context) (string, error) {
	res, err := p.exec.Run(ctx, fmt.Sprintf("kubectl get %s -o jsonpath={.data.admin}", ConsoleSecret), sc.Quiet(true))
	if err != nil {
		return "", err
	}
	password, err := base64.StdEncoding.DecodeString(strings.Trim(strings.TrimSpace(res.Stdout), "'"))
	if err != nil {
		return "", fmt.Errorf("decoding console password: %w", err)
	}
	return string(password), nil
}

// FormatURL substitutes the first "{}" in template with address.
func FormatURL(template, address string) string {
	return strings.Replace(template, "{}", address, 1)
}
