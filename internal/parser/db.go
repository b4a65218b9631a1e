package parser

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"ryu-ofctl/internal/model"
	"ryu-ofctl/pkg/flow"

	_ "github.com/go-sql-driver/mysql"
)

const (
	flowQuery = "SELECT id, dpid, priority, in_port, dl_src, dl_dst, dl_type, dl_vlan, dl_vlan_pcp, " +
		"nw_src, nw_dst, nw_proto, nw_tos, tp_src, tp_dst, out_port, actions, is_enabled FROM cfg_flow"
	flowQueryOrder     = " ORDER BY priority DESC, id ASC"
	flowQueryDPIDWhere = " WHERE dpid = ?"
)

var ryuActionNames = map[string]flow.ActionType{
	"OUTPUT":       flow.ActionOutput,
	"SET_VLAN_VID": flow.ActionSetVlanVid,
	"SET_VLAN_PCP": flow.ActionSetVlanPcp,
	"STRIP_VLAN":   flow.ActionStripVlan,
	"SET_DL_SRC":   flow.ActionSetDlSrc,
	"SET_DL_DST":   flow.ActionSetDlDst,
	"SET_NW_SRC":   flow.ActionSetNwSrc,
	"SET_NW_DST":   flow.ActionSetNwDst,
	"SET_NW_TOS":   flow.ActionSetNwTos,
	"SET_TP_SRC":   flow.ActionSetTpSrc,
	"SET_TP_DST":   flow.ActionSetTpDst,
	"ENQUEUE":      flow.ActionEnqueue,
}

// MariaDBParser loads flow rules from the cfg_flow table. NULL match
// columns are wildcards.
type MariaDBParser struct {
	db   *sql.DB
	dpid *flow.DatapathID

	Rules []model.Rule
}

// NewMariaDBParser connects to dsn. When dpid is set only that switch's rows
// are loaded.
func NewMariaDBParser(dsn string, dpid *flow.DatapathID) (*MariaDBParser, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return newMariaDBParserFromDB(db, dpid), nil
}

func newMariaDBParserFromDB(db *sql.DB, dpid *flow.DatapathID) *MariaDBParser {
	return &MariaDBParser{db: db, dpid: dpid}
}

func (p *MariaDBParser) Close() {
	p.db.Close()
}

func (p *MariaDBParser) Parse() error {
	if err := p.loadFlows(); err != nil {
		return fmt.Errorf("failed to load flows: %w", err)
	}
	return nil
}

type flowRow struct {
	id        int64
	dpid      uint64
	priority  sql.NullInt64
	inPort    sql.NullInt64
	dlSrc     sql.NullString
	dlDst     sql.NullString
	dlType    sql.NullInt64
	dlVlan    sql.NullInt64
	dlVlanPcp sql.NullInt64
	nwSrc     sql.NullString
	nwDst     sql.NullString
	nwProto   sql.NullInt64
	nwTos     sql.NullInt64
	tpSrc     sql.NullInt64
	tpDst     sql.NullInt64
	outPort   sql.NullInt64
	actions   sql.NullString
	isEnabled string
}

func (p *MariaDBParser) loadFlows() error {
	var (
		rows *sql.Rows
		err  error
	)
	if p.dpid != nil {
		rows, err = p.db.Query(flowQuery+flowQueryDPIDWhere+flowQueryOrder, uint64(*p.dpid))
	} else {
		rows, err = p.db.Query(flowQuery + flowQueryOrder)
	}
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r flowRow
		if err := rows.Scan(&r.id, &r.dpid, &r.priority, &r.inPort, &r.dlSrc, &r.dlDst, &r.dlType,
			&r.dlVlan, &r.dlVlanPcp, &r.nwSrc, &r.nwDst, &r.nwProto, &r.nwTos, &r.tpSrc, &r.tpDst,
			&r.outPort, &r.actions, &r.isEnabled); err != nil {
			return err
		}
		if r.isEnabled != "enable" {
			continue
		}

		entry, err := r.toEntry()
		if err != nil {
			return fmt.Errorf("cfg_flow row %d: %w", r.id, err)
		}
		p.Rules = append(p.Rules, model.Rule{
			Source: fmt.Sprintf("cfg_flow:%d", r.id),
			DPID:   flow.DatapathID(r.dpid),
			Entry:  entry,
		})
	}
	return rows.Err()
}

func (r *flowRow) toEntry() (*flow.FlowEntry, error) {
	entry := flow.NewFlowEntry()
	var err error

	if entry.Priority, err = nullUint[uint16]("priority", r.priority, 0xffff); err != nil {
		return nil, err
	}
	if entry.InPort, err = nullUint[uint32]("in_port", r.inPort, 0xffffffff); err != nil {
		return nil, err
	}
	if entry.DlSrc, err = nullMAC("dl_src", r.dlSrc); err != nil {
		return nil, err
	}
	if entry.DlDst, err = nullMAC("dl_dst", r.dlDst); err != nil {
		return nil, err
	}
	if entry.DlType, err = nullUint[uint16]("dl_type", r.dlType, 0xffff); err != nil {
		return nil, err
	}
	if entry.DlVlan, err = nullUint[uint16]("dl_vlan", r.dlVlan, 0xffff); err != nil {
		return nil, err
	}
	if entry.DlVlanPcp, err = nullUint[uint8]("dl_vlan_pcp", r.dlVlanPcp, 7); err != nil {
		return nil, err
	}
	if entry.NwSrc, err = nullIPv4("nw_src", r.nwSrc); err != nil {
		return nil, err
	}
	if entry.NwDst, err = nullIPv4("nw_dst", r.nwDst); err != nil {
		return nil, err
	}
	if entry.NwProto, err = nullUint[uint8]("nw_proto", r.nwProto, 0xff); err != nil {
		return nil, err
	}
	if entry.NwTos, err = nullUint[uint8]("nw_tos", r.nwTos, 0xff); err != nil {
		return nil, err
	}
	if entry.TpSrc, err = nullUint[uint16]("tp_src", r.tpSrc, 0xffff); err != nil {
		return nil, err
	}
	if entry.TpDst, err = nullUint[uint16]("tp_dst", r.tpDst, 0xffff); err != nil {
		return nil, err
	}
	if entry.OutPort, err = nullUint[uint32]("out_port", r.outPort, 0xffffffff); err != nil {
		return nil, err
	}

	if r.actions.Valid && strings.TrimSpace(r.actions.String) != "" {
		if err := decodeRyuActions(entry, r.actions.String); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// decodeRyuActions reads the actions column, stored in the controller's own
// format: [{"type": "OUTPUT", "port": 2}].
func decodeRyuActions(entry *flow.FlowEntry, data string) error {
	var actions []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &actions); err != nil {
		return fmt.Errorf("invalid actions %q: %w", data, err)
	}
	for i, a := range actions {
		var name string
		if err := json.Unmarshal(a["type"], &name); err != nil {
			return fmt.Errorf("action %d: missing type", i)
		}
		id, ok := ryuActionNames[strings.ToUpper(name)]
		if !ok {
			return fmt.Errorf("action %d: unknown type %q", i, name)
		}
		if id == flow.ActionOutput {
			var port uint32
			if err := json.Unmarshal(a["port"], &port); err != nil {
				return fmt.Errorf("action %d: invalid output port: %w", i, err)
			}
			if err := entry.AddAction(flow.NewOutputAction(port)); err != nil {
				return err
			}
			continue
		}

		var value any
		for key, raw := range a {
			if key == "type" {
				continue
			}
			if err := json.Unmarshal(raw, &value); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
			break
		}
		if err := entry.AddAction(flow.GenericAction{ID: id, Value: value}); err != nil {
			return err
		}
	}
	return nil
}

func nullUint[T uint8 | uint16 | uint32](column string, v sql.NullInt64, limit int64) (*T, error) {
	if !v.Valid {
		return nil, nil
	}
	if v.Int64 < 0 || v.Int64 > limit {
		return nil, fmt.Errorf("%s %d out of range", column, v.Int64)
	}
	t := T(v.Int64)
	return &t, nil
}

func nullMAC(column string, v sql.NullString) (*string, error) {
	if !v.Valid {
		return nil, nil
	}
	return parseMAC(column, v.String)
}

func nullIPv4(column string, v sql.NullString) (*string, error) {
	if !v.Valid {
		return nil, nil
	}
	return parseIPv4(column, v.String)
}
