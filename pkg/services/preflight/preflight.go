// Package preflight verifies that every inventory host accepts SSH before any
// playbook runs.
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/sync/errgroup"

	"github.com/systemstart/nya/pkg/bus"
	"github.com/systemstart/nya/pkg/payload"
	"github.com/systemstart/nya/pkg/service"
)

const (
	// Name identifies the service in handler errors.
	Name = "preflight"
	// Event triggers the reachability check.
	Event = "onPreflight"

	// UnreachableKey receives the sorted names of hosts that failed the check.
	UnreachableKey = "preflight.unreachable"

	defaultPort        = 22
	defaultUser        = "root"
	defaultConcurrency = 8
)

// InventoryKeys are the context keys whose hosts are checked.
var InventoryKeys = []string{"nya.control_plane.hosts", "nya.nodes.hosts"}

// Host is one inventory entry, decoded from ansible host variables.
type Host struct {
	Name    string
	Address string `mapstructure:"ansible_host"`
	Port    int    `mapstructure:"ansible_port"`
	User    string `mapstructure:"ansible_user"`
	KeyFile string `mapstructure:"ansible_ssh_private_key_file"`
}

func (h Host) addr() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

// Checker reports whether h is reachable.
type Checker interface {
	Check(ctx context.Context, h Host) error
}

// Service binds the preflight check to onPreflight.
type Service struct {
	checker     Checker
	concurrency int
	logger      *slog.Logger
}

// New returns the preflight service. A nil checker uses SSH with agent and
// key file authentication.
func New(checker Checker, logger *slog.Logger) *Service {
	if checker == nil {
		checker = NewSSHChecker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{checker: checker, concurrency: defaultConcurrency, logger: logger}
}

// Name returns Name.
func (s *Service) Name() string { return Name }

// Bindings binds the check to Event.
func (s *Service) Bindings() []service.Binding {
	return []service.Binding{service.Bind(Event, s.check)}
}

func (s *Service) check(ctx context.Context, rt bus.Runtime, _ *payload.Payload) error {
	var hosts []Host
	for _, key := range InventoryKeys {
		decoded, err := DecodeHosts(rt.Get(key))
		if err != nil {
			narrate(ctx, rt, fmt.Sprintf("Preflight: invalid hosts under %s: %v", key, err))
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		hosts = append(hosts, decoded...)
	}

	if len(hosts) == 0 {
		rt.Set(UnreachableKey, []string{})
		narrate(ctx, rt, "Preflight: no hosts in inventory, skipping.")
		return nil
	}

	narrate(ctx, rt, fmt.Sprintf("Preflight: checking %d hosts...", len(hosts)))

	var (
		mu          sync.Mutex
		unreachable []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, h := range hosts {
		g.Go(func() error {
			if err := s.checker.Check(gctx, h); err != nil {
				s.logger.Warn("host unreachable", "host", h.Name, "addr", h.addr(), "error", err)
				narrate(ctx, rt, fmt.Sprintf("Preflight: %s (%s) unreachable: %v", h.Name, h.addr(), err))
				mu.Lock()
				unreachable = append(unreachable, h.Name)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(unreachable)
	unreachable = slices.Compact(unreachable)
	if unreachable == nil {
		unreachable = []string{}
	}
	rt.Set(UnreachableKey, unreachable)

	if len(unreachable) > 0 {
		return fmt.Errorf("unreachable hosts: %s", strings.Join(unreachable, ", "))
	}
	narrate(ctx, rt, fmt.Sprintf("Preflight: all %d hosts reachable.", len(hosts)))
	return nil
}

// DecodeHosts accepts the ansible hosts mapping (name to host variables) or a
// plain list of addresses. A nil value yields no hosts.
func DecodeHosts(value any) ([]Host, error) {
	var hosts []Host
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		for name, vars := range v {
			var h Host
			if vars != nil {
				if err := mapstructure.WeakDecode(vars, &h); err != nil {
					return nil, fmt.Errorf("host %s: %w", name, err)
				}
			}
			h.Name = name
			hosts = append(hosts, h)
		}
	case []any:
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("host entry %v is not a string", item)
			}
			hosts = append(hosts, Host{Name: name})
		}
	default:
		return nil, fmt.Errorf("hosts must be an object or a list, got %T", value)
	}

	for i := range hosts {
		if hosts[i].Address == "" {
			hosts[i].Address = hosts[i].Name
		}
		if hosts[i].Port == 0 {
			hosts[i].Port = defaultPort
		}
		if hosts[i].User == "" {
			hosts[i].User = defaultUser
		}
	}
	slices.SortFunc(hosts, func(a, b Host) int { return strings.Compare(a.Name, b.Name) })
	return hosts, nil
}

func narrate(ctx context.Context, rt bus.Runtime, msg string) {
	rt.Trigger(ctx, bus.LogEvent, payload.New(msg))
}
