// Package steps runs provisioning playbooks as supervised subprocesses.
package steps

import "strings"

// Playbook describes one ansible-playbook invocation.
type Playbook struct {
	// Name selects playbooks/<Name>.yml from the asset tree.
	Name string
	// InventoryKey is the context key holding the inventory subtree, e.g.
	// "nya.control_plane". Its last segment becomes the inventory group.
	InventoryKey string
	// VarsKey is the context key holding extra variables. A missing value is
	// treated as an empty object.
	VarsKey string
	// Vars are merged over the context variables.
	Vars map[string]any
}

// inventoryGroup returns the last dotted segment of key.
func inventoryGroup(key string) string {
	return key[strings.LastIndex(key, ".")+1:]
}
