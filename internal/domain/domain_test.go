package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestStatusCodesRoundTrip(t *testing.T) {
	if got, err := ParseProjectStatus("5"); err != nil || got != ProjectCompleted {
		t.Fatalf("ParseProjectStatus(5) = %v, %v", got, err)
	}
	if got, err := ParseRequisitionStatus("1"); err != nil || got != RequisitionOpen {
		t.Fatalf("ParseRequisitionStatus(1) = %v, %v", got, err)
	}
	if got, err := ParseOrderStatus("4"); err != nil || got != OrderCompleted {
		t.Fatalf("ParseOrderStatus(4) = %v, %v", got, err)
	}
	if got, err := ParseContractStatus("2"); err != nil || got != ContractActive {
		t.Fatalf("ParseContractStatus(2) = %v, %v", got, err)
	}
	if got, err := ParseItemStatus("3"); err != nil || got != ItemReceived {
		t.Fatalf("ParseItemStatus(3) = %v, %v", got, err)
	}
	if got, err := ParseInstallmentStatus("2"); err != nil || got != InstallmentPartial {
		t.Fatalf("ParseInstallmentStatus(2) = %v, %v", got, err)
	}

	for _, code := range []string{"0", "7", "x", "", "-1", "1.5"} {
		if _, err := ParseProjectStatus(code); err == nil {
			t.Fatalf("ParseProjectStatus(%q) accepted", code)
		}
	}
	if _, err := ParseInstallmentStatus("4"); err == nil {
		t.Fatalf("installment code 4 accepted")
	}
	if _, err := ParseOrderStatus("5"); err == nil {
		t.Fatalf("order code 5 accepted")
	}
}

func TestStatusJSONUsesLegacyCodes(t *testing.T) {
	b, err := json.Marshal(ProjectActive)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2"` {
		t.Fatalf("marshal ProjectActive = %s, want \"2\"", b)
	}

	var s ProjectStatus
	if err := json.Unmarshal([]byte(`"3"`), &s); err != nil || s != ProjectSuspended {
		t.Fatalf("unmarshal \"3\" = %v, %v", s, err)
	}
	// Bare numbers are tolerated on input.
	if err := json.Unmarshal([]byte(`4`), &s); err != nil || s != ProjectCancelled {
		t.Fatalf("unmarshal 4 = %v, %v", s, err)
	}
	if err := json.Unmarshal([]byte(`"9"`), &s); err == nil {
		t.Fatalf("out of range code accepted")
	}
	if err := json.Unmarshal([]byte(`true`), &s); err == nil {
		t.Fatalf("boolean status accepted")
	}

	var c ContractStatus
	if err := json.Unmarshal([]byte(`"5"`), &c); err == nil {
		t.Fatalf("contract code 5 accepted")
	}
}

func TestProjectStatusLabels(t *testing.T) {
	cases := map[ProjectStatus]string{
		ProjectPlanning:  "planejamento",
		ProjectActive:    "andamento",
		ProjectSuspended: "suspenso",
		ProjectCancelled: "cancelado",
		ProjectCompleted: "concluido",
		ProjectArchived:  "arquivado",
	}
	for status, want := range cases {
		if got := status.Label(); got != want {
			t.Fatalf("Label(%d) = %q, want %q", status, got, want)
		}
	}
	if got := ProjectStatus(99).Label(); got != "desconhecido" {
		t.Fatalf("Label(99) = %q", got)
	}
}

func TestProgressClampsAndRounds(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 0},
		{start, 0},
		{time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), 50},
		{time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC), 25},
		{end, 100},
		{time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), 100},
	}
	for _, tc := range cases {
		if got := Progress(start, end, tc.now); got != tc.want {
			t.Fatalf("Progress(now=%s) = %d, want %d", tc.now.Format("2006-01-02 15:04"), got, tc.want)
		}
	}

	// A zero-length or inverted window counts as done once reached.
	if got := Progress(start, start, start); got != 100 {
		t.Fatalf("zero-length window = %d, want 100", got)
	}
	if got := Progress(end, start, end); got != 100 {
		t.Fatalf("inverted window = %d, want 100", got)
	}
}

func TestValidationErrorAggregates(t *testing.T) {
	verr := &ValidationError{}
	if err := verr.OrNil(); err != nil {
		t.Fatalf("empty validation error should be nil, got %v", err)
	}
	if verr.Error() != "validation failed" {
		t.Fatalf("empty message = %q", verr.Error())
	}

	verr.Add("nome", "nome e obrigatorio")
	verr.Add("valor", "valor deve ser positivo")
	err := verr.OrNil()
	if err == nil {
		t.Fatalf("populated validation error should not be nil")
	}
	want := "validation failed: nome: nome e obrigatorio; valor: valor deve ser positivo"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}

	b, merr := json.Marshal(verr)
	if merr != nil {
		t.Fatalf("marshal: %v", merr)
	}
	var out struct {
		Fields []FieldError `json:"fields"`
	}
	if uerr := json.Unmarshal(b, &out); uerr != nil || len(out.Fields) != 2 {
		t.Fatalf("fields payload = %s (%v)", b, uerr)
	}
}

func TestErrorPredicatesFollowWrapping(t *testing.T) {
	notFound := fmt.Errorf("loading: %w", NewNotFound("contrato", "0001/2025"))
	if !IsNotFound(notFound) {
		t.Fatalf("wrapped not-found not detected")
	}
	if IsConflict(notFound) || IsUnauthorized(notFound) || IsValidation(notFound) {
		t.Fatalf("not-found matched another kind")
	}
	if notFound.Error() != "loading: contrato 0001/2025 not found" {
		t.Fatalf("message = %q", notFound.Error())
	}

	conflict := NewConflict("projeto", "possui requisicoes vinculadas")
	if !IsConflict(conflict) || IsNotFound(conflict) {
		t.Fatalf("conflict predicate mismatch")
	}

	if NewUnauthorized("").Error() != "unauthorized" {
		t.Fatalf("empty unauthorized reason should read unauthorized")
	}
	if NewUnauthorized("sem permissao").Error() != "sem permissao" {
		t.Fatalf("unauthorized reason dropped")
	}

	cause := errors.New("disk full")
	internal := NewInternal(cause)
	if internal.Error() != "internal error" {
		t.Fatalf("internal message leaks: %q", internal.Error())
	}
	if !errors.Is(internal, cause) {
		t.Fatalf("internal cause not unwrappable")
	}
}

func TestIdentityMembershipLookup(t *testing.T) {
	id := Identity{
		User: User{ID: "u1", Role: RoleUser},
		Memberships: []UserProject{
			{UserID: "u1", CodProjeto: 3, Role: ProjectRoleEditor},
			{UserID: "u1", CodProjeto: 8, Role: ProjectRoleOwner},
		},
	}
	m, ok := id.Membership(8)
	if !ok || m.Role != ProjectRoleOwner {
		t.Fatalf("membership(8) = %+v, %v", m, ok)
	}
	if _, ok := id.Membership(99); ok {
		t.Fatalf("membership(99) should be absent")
	}
}

func TestRoleValidity(t *testing.T) {
	if !RoleAdmin.Valid() || !RoleUser.Valid() || UserRole("ROOT").Valid() {
		t.Fatalf("user role validity broken")
	}
	if !ProjectRoleViewer.Valid() || ProjectRole("GUEST").Valid() {
		t.Fatalf("project role validity broken")
	}
	if !ThemeDark.Valid() || Theme("sepia").Valid() {
		t.Fatalf("theme validity broken")
	}
}
