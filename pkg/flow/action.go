package flow

import "fmt"

// ActionType follows the OpenFlow 1.0 OFPAT_* numbering.
type ActionType int

const (
	ActionOutput ActionType = iota
	ActionSetVlanVid
	ActionSetVlanPcp
	ActionStripVlan
	ActionSetDlSrc
	ActionSetDlDst
	ActionSetNwSrc
	ActionSetNwDst
	ActionSetNwTos
	ActionSetTpSrc
	ActionSetTpDst
	ActionEnqueue
)

// Action is an operation applied to packets matched by a flow. The set of
// implementations is closed to this package.
type Action interface {
	ActionID() ActionType
	Param() any
	String() string

	action()
}

// OutputAction forwards the packet out of a single switch port.
type OutputAction struct {
	OutPort uint32
}

func NewOutputAction(outPort uint32) OutputAction {
	return OutputAction{OutPort: outPort}
}

func (a OutputAction) ActionID() ActionType { return ActionOutput }
func (a OutputAction) Param() any           { return a.OutPort }
func (a OutputAction) String() string       { return fmt.Sprintf("OutputAction: %d", a.OutPort) }
func (OutputAction) action()                {}

// GenericAction carries any action kind without a dedicated type. It can be
// attached to a FlowEntry but controllers that only understand OUTPUT reject it.
type GenericAction struct {
	ID    ActionType
	Value any
}

func (a GenericAction) ActionID() ActionType { return a.ID }
func (a GenericAction) Param() any           { return a.Value }
func (a GenericAction) String() string       { return fmt.Sprintf("GenericAction(%d): %v", a.ID, a.Value) }
func (GenericAction) action()                {}
