package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Status enumerations. Each entity carries its own closed set. The database
// stores the legacy single-character codes ("1", "2", ...); the numeric enum
// value IS the legacy code, so translation at the storage boundary is
// strconv in both directions.

type ProjectStatus int

const (
	ProjectPlanning ProjectStatus = iota + 1
	ProjectActive
	ProjectSuspended
	ProjectCancelled
	ProjectCompleted
	ProjectArchived
)

func (s ProjectStatus) Valid() bool { return s >= ProjectPlanning && s <= ProjectArchived }
func (s ProjectStatus) Code() string {
	return strconv.Itoa(int(s))
}

func (s ProjectStatus) Label() string {
	switch s {
	case ProjectPlanning:
		return "planejamento"
	case ProjectActive:
		return "andamento"
	case ProjectSuspended:
		return "suspenso"
	case ProjectCancelled:
		return "cancelado"
	case ProjectCompleted:
		return "concluido"
	case ProjectArchived:
		return "arquivado"
	}
	return "desconhecido"
}

func ParseProjectStatus(code string) (ProjectStatus, error) {
	s, err := parseStatusCode(code, int(ProjectArchived))
	return ProjectStatus(s), err
}

func (s ProjectStatus) MarshalJSON() ([]byte, error)  { return json.Marshal(s.Code()) }
func (s *ProjectStatus) UnmarshalJSON(b []byte) error { return unmarshalStatus(b, (*int)(s), int(ProjectArchived)) }

type RequisitionStatus int

const (
	RequisitionOpen RequisitionStatus = iota + 1
	RequisitionInProgress
	RequisitionSuspended
	RequisitionCancelled
	RequisitionCompleted
)

func (s RequisitionStatus) Valid() bool {
	return s >= RequisitionOpen && s <= RequisitionCompleted
}
func (s RequisitionStatus) Code() string { return strconv.Itoa(int(s)) }

func ParseRequisitionStatus(code string) (RequisitionStatus, error) {
	s, err := parseStatusCode(code, int(RequisitionCompleted))
	return RequisitionStatus(s), err
}

func (s RequisitionStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.Code()) }
func (s *RequisitionStatus) UnmarshalJSON(b []byte) error {
	return unmarshalStatus(b, (*int)(s), int(RequisitionCompleted))
}

type OrderStatus int

const (
	OrderOpen OrderStatus = iota + 1
	OrderInProgress
	OrderCancelled
	OrderCompleted
)

func (s OrderStatus) Valid() bool   { return s >= OrderOpen && s <= OrderCompleted }
func (s OrderStatus) Code() string  { return strconv.Itoa(int(s)) }

func ParseOrderStatus(code string) (OrderStatus, error) {
	s, err := parseStatusCode(code, int(OrderCompleted))
	return OrderStatus(s), err
}

func (s OrderStatus) MarshalJSON() ([]byte, error)  { return json.Marshal(s.Code()) }
func (s *OrderStatus) UnmarshalJSON(b []byte) error { return unmarshalStatus(b, (*int)(s), int(OrderCompleted)) }

type ContractStatus int

const (
	ContractPending ContractStatus = iota + 1
	ContractActive
	ContractCancelled
	ContractClosed
)

func (s ContractStatus) Valid() bool  { return s >= ContractPending && s <= ContractClosed }
func (s ContractStatus) Code() string { return strconv.Itoa(int(s)) }

func ParseContractStatus(code string) (ContractStatus, error) {
	s, err := parseStatusCode(code, int(ContractClosed))
	return ContractStatus(s), err
}

func (s ContractStatus) MarshalJSON() ([]byte, error)  { return json.Marshal(s.Code()) }
func (s *ContractStatus) UnmarshalJSON(b []byte) error { return unmarshalStatus(b, (*int)(s), int(ContractClosed)) }

// ItemStatus covers itens_ordem rows: pending, partially received, received.
type ItemStatus int

const (
	ItemPending ItemStatus = iota + 1
	ItemPartial
	ItemReceived
)

func (s ItemStatus) Valid() bool  { return s >= ItemPending && s <= ItemReceived }
func (s ItemStatus) Code() string { return strconv.Itoa(int(s)) }

func ParseItemStatus(code string) (ItemStatus, error) {
	s, err := parseStatusCode(code, int(ItemReceived))
	return ItemStatus(s), err
}

func (s ItemStatus) MarshalJSON() ([]byte, error)  { return json.Marshal(s.Code()) }
func (s *ItemStatus) UnmarshalJSON(b []byte) error { return unmarshalStatus(b, (*int)(s), int(ItemReceived)) }

// InstallmentStatus covers itens_contrato rows. Settled ("3") requires the
// paid amount to cover the installment amount.
type InstallmentStatus int

const (
	InstallmentOpen InstallmentStatus = iota + 1
	InstallmentPartial
	InstallmentSettled
)

func (s InstallmentStatus) Valid() bool  { return s >= InstallmentOpen && s <= InstallmentSettled }
func (s InstallmentStatus) Code() string { return strconv.Itoa(int(s)) }

func ParseInstallmentStatus(code string) (InstallmentStatus, error) {
	s, err := parseStatusCode(code, int(InstallmentSettled))
	return InstallmentStatus(s), err
}

func (s InstallmentStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.Code()) }
func (s *InstallmentStatus) UnmarshalJSON(b []byte) error {
	return unmarshalStatus(b, (*int)(s), int(InstallmentSettled))
}

func parseStatusCode(code string, max int) (int, error) {
	v, err := strconv.Atoi(code)
	if err != nil || v < 1 || v > max {
		return 0, fmt.Errorf("invalid status code %q", code)
	}
	return v, nil
}

func unmarshalStatus(b []byte, out *int, max int) error {
	var code string
	if err := json.Unmarshal(b, &code); err != nil {
		// Tolerate bare numbers; payloads arrive without guaranteed coercion.
		var n int
		if err2 := json.Unmarshal(b, &n); err2 != nil {
			return err
		}
		code = strconv.Itoa(n)
	}
	v, err := parseStatusCode(code, max)
	if err != nil {
		return err
	}
	*out = v
	return nil
}

// UserRole is the global role on a user account.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

func (r UserRole) Valid() bool { return r == RoleUser || r == RoleAdmin }

// ProjectRole is the per-project membership role. The labels are stored as-is;
// no privilege ordering is assumed between them.
type ProjectRole string

const (
	ProjectRoleViewer  ProjectRole = "VIEWER"
	ProjectRoleEditor  ProjectRole = "EDITOR"
	ProjectRoleManager ProjectRole = "MANAGER"
	ProjectRoleOwner   ProjectRole = "OWNER"
)

func (r ProjectRole) Valid() bool {
	switch r {
	case ProjectRoleViewer, ProjectRoleEditor, ProjectRoleManager, ProjectRoleOwner:
		return true
	}
	return false
}

// Theme is the profile display preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark || t == ThemeSystem }
