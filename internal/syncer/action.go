package syncer

import (
	"fmt"
	"net"
	"strings"
)

// ActionKind enumerates every quick action the console can issue. The
// set is closed: actions are built through the typed constructors below,
// which validate their parameters up front, so a malformed request can
// never reach the wire.
type ActionKind string

const (
	ActionAllowPort       ActionKind = "allow_port"
	ActionDenyPort        ActionKind = "deny_port"
	ActionLimitPort       ActionKind = "limit_port"
	ActionAllowIP         ActionKind = "allow_ip"
	ActionBlockIP         ActionKind = "block_ip"
	ActionDeleteRule      ActionKind = "delete_rule"
	ActionEnableFirewall  ActionKind = "enable_firewall"
	ActionDisableFirewall ActionKind = "disable_firewall"
	ActionReorderRule     ActionKind = "reorder_rule"
	ActionBanIP           ActionKind = "ban_ip"
	ActionUnbanIP         ActionKind = "unban_ip"
)

// Action is one validated quick action with its parameters.
type Action struct {
	kind       ActionKind
	port       int
	protocol   string
	ip         string
	ruleIndex  int
	jail       string
	banSeconds int
	fromIndex  int
	toIndex    int
}

func portAction(kind ActionKind, port int, protocol string) (Action, error) {
	if port < 1 || port > 65535 {
		return Action{}, fmt.Errorf("%s: port %d out of range", kind, port)
	}
	protocol = strings.ToLower(protocol)
	switch protocol {
	case "", "tcp", "udp":
	default:
		return Action{}, fmt.Errorf("%s: unsupported protocol %q", kind, protocol)
	}
	return Action{kind: kind, port: port, protocol: protocol}, nil
}

func ipAction(kind ActionKind, ip string) (Action, error) {
	if net.ParseIP(ip) == nil {
		return Action{}, fmt.Errorf("%s: invalid ip %q", kind, ip)
	}
	return Action{kind: kind, ip: ip}, nil
}

func AllowPort(port int, protocol string) (Action, error) {
	return portAction(ActionAllowPort, port, protocol)
}

func DenyPort(port int, protocol string) (Action, error) {
	return portAction(ActionDenyPort, port, protocol)
}

func LimitPort(port int, protocol string) (Action, error) {
	return portAction(ActionLimitPort, port, protocol)
}

func AllowIP(ip string) (Action, error) { return ipAction(ActionAllowIP, ip) }

func BlockIP(ip string) (Action, error) { return ipAction(ActionBlockIP, ip) }

func DeleteRule(index int) (Action, error) {
	if index < 1 {
		return Action{}, fmt.Errorf("delete_rule: rule index %d out of range", index)
	}
	return Action{kind: ActionDeleteRule, ruleIndex: index}, nil
}

func EnableFirewall() Action  { return Action{kind: ActionEnableFirewall} }
func DisableFirewall() Action { return Action{kind: ActionDisableFirewall} }

func ReorderRule(from, to int) (Action, error) {
	if from < 1 || to < 1 {
		return Action{}, fmt.Errorf("reorder_rule: indexes %d -> %d out of range", from, to)
	}
	if from == to {
		return Action{}, fmt.Errorf("reorder_rule: source and target are both %d", from)
	}
	return Action{kind: ActionReorderRule, fromIndex: from, toIndex: to}, nil
}

func BanIP(ip, jail string, durationSeconds int) (Action, error) {
	a, err := ipAction(ActionBanIP, ip)
	if err != nil {
		return Action{}, err
	}
	if jail == "" {
		jail = "sshd"
	}
	if durationSeconds < 0 {
		return Action{}, fmt.Errorf("ban_ip: negative duration %d", durationSeconds)
	}
	a.jail = jail
	a.banSeconds = durationSeconds
	return a, nil
}

func UnbanIP(ip, jail string) (Action, error) {
	a, err := ipAction(ActionUnbanIP, ip)
	if err != nil {
		return Action{}, err
	}
	if jail == "" {
		jail = "sshd"
	}
	a.jail = jail
	return a, nil
}

func (a Action) Kind() ActionKind { return a.kind }

// Fail2ban reports whether the action goes to the fail2ban endpoint
// rather than the ufw quick-action endpoint.
func (a Action) Fail2ban() bool {
	return a.kind == ActionBanIP || a.kind == ActionUnbanIP
}

// OperationType maps the action to the session operation type that owns
// its progress indicator and refresh fan-out.
func (a Action) OperationType() OperationType {
	if a.Fail2ban() {
		return OpFail2ban
	}
	return OpUFW
}

// Params returns the wire payload merged into the request body next to
// action_type.
func (a Action) Params() map[string]any {
	p := map[string]any{}
	switch a.kind {
	case ActionAllowPort, ActionDenyPort, ActionLimitPort:
		p["port"] = a.port
		if a.protocol != "" {
			p["protocol"] = a.protocol
		}
	case ActionAllowIP, ActionBlockIP:
		p["ip"] = a.ip
	case ActionDeleteRule:
		p["rule_index"] = a.ruleIndex
	case ActionReorderRule:
		p["from_index"] = a.fromIndex
		p["to_index"] = a.toIndex
	case ActionBanIP:
		p["ip"] = a.ip
		p["jail"] = a.jail
		if a.banSeconds > 0 {
			p["ban_duration"] = a.banSeconds
		}
	case ActionUnbanIP:
		p["ip"] = a.ip
		p["jail"] = a.jail
	}
	return p
}

// Describe renders the audit line shown in the command queue and the
// local history.
func (a Action) Describe() string {
	proto := a.protocol
	if proto == "" {
		proto = "any"
	}
	switch a.kind {
	case ActionAllowPort:
		return fmt.Sprintf("Allow port %d/%s", a.port, proto)
	case ActionDenyPort:
		return fmt.Sprintf("Deny port %d/%s", a.port, proto)
	case ActionLimitPort:
		return fmt.Sprintf("Rate-limit port %d/%s", a.port, proto)
	case ActionAllowIP:
		return fmt.Sprintf("Allow traffic from %s", a.ip)
	case ActionBlockIP:
		return fmt.Sprintf("Block traffic from %s", a.ip)
	case ActionDeleteRule:
		return fmt.Sprintf("Delete rule #%d", a.ruleIndex)
	case ActionEnableFirewall:
		return "Enable firewall"
	case ActionDisableFirewall:
		return "Disable firewall"
	case ActionReorderRule:
		return fmt.Sprintf("Move rule #%d to #%d", a.fromIndex, a.toIndex)
	case ActionBanIP:
		return fmt.Sprintf("Ban %s in jail %s", a.ip, a.jail)
	case ActionUnbanIP:
		return fmt.Sprintf("Unban %s from jail %s", a.ip, a.jail)
	}
	return string(a.kind)
}
