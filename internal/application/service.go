package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

type Service struct {
	repo domain.Repository
	now  func() time.Time
}

func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Date accepts both plain dates and RFC 3339 timestamps on input; the
// legacy clients send "2006-01-02".
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

func NewDate(t time.Time) *Date { return &Date{Time: t} }

var (
	numContratoPattern = regexp.MustCompile(`^\d{4}/\d{4}$`)
	cpfCnpjPattern     = regexp.MustCompile(`^\d{14}$`)
	emailPattern       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// validMoney accepts non-negative amounts with at most two decimal places.
func validMoney(v float64) bool {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	cents := v * 100
	return math.Abs(cents-math.Round(cents)) < 1e-6
}

func newSessionToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// RequestMeta carries transport facts about the caller into the audit
// trail. Transports attach it to the context before invoking operations.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type requestMetaKey struct{}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// WriteActivity records an audit entry; failures never block the action the
// entry describes.
func (s *Service) WriteActivity(ctx context.Context, userID, action, resource, resourceID string, metadata map[string]any) {
	meta := requestMetaFrom(ctx)
	_ = s.repo.CreateActivityLog(ctx, domain.ActivityLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Metadata:   metadata,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})
}

func (s *Service) ListActivityLogs(ctx context.Context, identity domain.Identity, userID string, limit int) ([]domain.ActivityLog, error) {
	if identity.User.Role != domain.RoleAdmin {
		return nil, domain.NewUnauthorized("apenas administradores consultam o historico")
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 2000 {
		limit = 2000
	}
	return s.repo.ListActivityLogs(ctx, userID, limit)
}

func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	return s.repo.DashboardStats(ctx, s.now().UTC())
}

func (s *Service) ProjectsSummary(ctx context.Context) (domain.ProjectsSummary, error) {
	return s.repo.ProjectsSummary(ctx)
}
