// Package nyabase binds the base build and destroy steps to their playbooks.
package nyabase

import (
	"context"
	"fmt"

	"github.com/systemstart/nya/pkg/bus"
	"github.com/systemstart/nya/pkg/payload"
	"github.com/systemstart/nya/pkg/service"
	"github.com/systemstart/nya/pkg/steps"
)

const (
	// Name identifies the service in handler errors.
	Name = "nya-base"

	// Events handled by the service, one playbook each.
	EventBuildMainServer     = "onBuildMainServer"
	EventBuildNodeServers    = "onBuildNodeServers"
	EventRunPostBuild        = "onRunPostBuild"
	EventValidateCluster     = "onValidateCluster"
	EventDestroyControlPlane = "onDestroyControlPlane"
	EventDestroyNodes        = "onDestroyNodes"

	controlPlaneKey = "nya.control_plane"
	nodesKey        = "nya.nodes"
)

// Runner executes one playbook. *steps.Executor implements it.
type Runner interface {
	Run(ctx context.Context, rt bus.Runtime, pb steps.Playbook) error
}

type playbookStep struct {
	event     string
	playbook  string
	inventory string
	starting  string
	succeeded string
}

var playbookSteps = []playbookStep{
	{EventBuildMainServer, "build_control_plane", controlPlaneKey, "Building control plane...", "Control plane built successfully."},
	{EventBuildNodeServers, "build_nodes", nodesKey, "Building nodes...", "Nodes built successfully."},
	{EventRunPostBuild, "post_build", controlPlaneKey, "Running post build...", "Post build ran successfully."},
	{EventValidateCluster, "validate_cluster", controlPlaneKey, "Validating cluster...", "Validated cluster successfully."},
	{EventDestroyControlPlane, "destroy_control_plane", controlPlaneKey, "Destroying control plane...", "Control plane destroyed."},
	{EventDestroyNodes, "destroy_nodes", nodesKey, "Destroying nodes...", "Nodes destroyed."},
}

// Service runs the base playbooks through a Runner.
type Service struct {
	runner   Runner
	tokenKey string
}

// New creates the base service.
func New(runner Runner) *Service {
	return &Service{runner: runner, tokenKey: steps.DefaultTokenKey}
}

// Name returns Name.
func (s *Service) Name() string { return Name }

// Bindings binds one handler per playbook event.
func (s *Service) Bindings() []service.Binding {
	bindings := make([]service.Binding, 0, len(playbookSteps))
	for _, st := range playbookSteps {
		bindings = append(bindings, service.Bind(st.event, s.handler(st)))
	}
	return bindings
}

func (s *Service) handler(st playbookStep) bus.Handler {
	return func(ctx context.Context, rt bus.Runtime, _ *payload.Payload) error {
		narrate(ctx, rt, st.starting)

		pb := steps.Playbook{
			Name:         st.playbook,
			InventoryKey: st.inventory,
			VarsKey:      st.inventory + ".vars",
		}
		if st.event == EventBuildNodeServers {
			pb.Vars = s.joinVars(ctx, rt)
		}

		if err := s.runner.Run(ctx, rt, pb); err != nil {
			narrate(ctx, rt, fmt.Sprintf("Ansible failed: %v", err))
			return err
		}
		narrate(ctx, rt, st.succeeded)
		return nil
	}
}

// joinVars passes the token captured from the control plane to the nodes.
// Problems are narrated and the playbook still runs, so ansible reports the
// missing variable in its own terms.
func (s *Service) joinVars(ctx context.Context, rt bus.Runtime) map[string]any {
	if vars := rt.Get(nodesKey + ".vars"); vars != nil {
		if _, ok := vars.(map[string]any); !ok {
			narrate(ctx, rt, fmt.Sprintf("ERROR: %s.vars is not an object! Got: %v", nodesKey, vars))
		}
	}

	token, ok := rt.Get(s.tokenKey).(string)
	if !ok {
		narrate(ctx, rt, fmt.Sprintf("ERROR: %s is not a string! Got: %v", s.tokenKey, rt.Get(s.tokenKey)))
		return nil
	}
	return map[string]any{s.tokenKey: token}
}

func narrate(ctx context.Context, rt bus.Runtime, msg string) {
	rt.Trigger(ctx, bus.LogEvent, payload.New(msg))
}
