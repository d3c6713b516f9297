package channel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

// TemplateApprovalStatus mirrors Meta's template review lifecycle
type TemplateApprovalStatus string

const (
	TemplateApprovalPending  TemplateApprovalStatus = "pending"
	TemplateApprovalApproved TemplateApprovalStatus = "approved"
	TemplateApprovalRejected TemplateApprovalStatus = "rejected"
)

func (s TemplateApprovalStatus) IsValid() bool {
	switch s {
	case TemplateApprovalPending, TemplateApprovalApproved, TemplateApprovalRejected:
		return true
	}
	return false
}

func (s TemplateApprovalStatus) String() string {
	return string(s)
}

// TemplateCategory classifies a template for Meta's review
type TemplateCategory string

const (
	TemplateCategoryUtility        TemplateCategory = "utility"
	TemplateCategoryMarketing      TemplateCategory = "marketing"
	TemplateCategoryAuthentication TemplateCategory = "authentication"
)

func (c TemplateCategory) IsValid() bool {
	switch c {
	case TemplateCategoryUtility, TemplateCategoryMarketing, TemplateCategoryAuthentication:
		return true
	}
	return false
}

// Template names follow Meta's rules: lowercase letters, digits, underscores
var templateNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,512}$`)

var placeholderPattern = regexp.MustCompile(`\{\{(\d+)\}\}`)

// MessageTemplate is a message body registered with the platform.
// Placeholders are written {{1}}, {{2}}, ... and must be numbered
// contiguously from one. Only approved templates can be sent.
type MessageTemplate struct {
	shared.TenantAggregateRoot
	Platform         Platform               `gorm:"type:varchar(20);not null;uniqueIndex:idx_message_templates_key,priority:2" json:"platform"`
	Name             string                 `gorm:"type:varchar(512);not null;uniqueIndex:idx_message_templates_key,priority:3" json:"name"`
	Language         string                 `gorm:"type:varchar(10);not null;uniqueIndex:idx_message_templates_key,priority:4" json:"language"`
	Body             string                 `gorm:"type:text;not null" json:"body"`
	Category         TemplateCategory       `gorm:"type:varchar(20);not null;default:'utility'" json:"category"`
	PlaceholderCount int                    `gorm:"not null;default:0" json:"placeholder_count"`
	ApprovalStatus   TemplateApprovalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"approval_status"`
	RejectionReason  string                 `gorm:"type:varchar(255)" json:"rejection_reason,omitempty"`
}

func (MessageTemplate) TableName() string {
	return "message_templates"
}

// NewMessageTemplate registers a template pending platform approval
func NewMessageTemplate(tenantID uuid.UUID, platform Platform, name, language, body string, category TemplateCategory) (*MessageTemplate, error) {
	if !platform.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLATFORM", fmt.Sprintf("Invalid platform: %s", platform))
	}
	name = strings.TrimSpace(name)
	if !templateNamePattern.MatchString(name) {
		return nil, shared.NewDomainError("INVALID_TEMPLATE_NAME", "Template name must be lowercase letters, digits and underscores")
	}
	language = strings.TrimSpace(language)
	if language == "" || len(language) > 10 {
		return nil, shared.NewDomainError("INVALID_LANGUAGE", "Language code is required, e.g. en or en_US")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", fmt.Sprintf("Invalid template category: %s", category))
	}

	count, err := countPlaceholders(body)
	if err != nil {
		return nil, err
	}

	tpl := &MessageTemplate{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Platform:            platform,
		Name:                name,
		Language:            language,
		Body:                body,
		Category:            category,
		PlaceholderCount:    count,
		ApprovalStatus:      TemplateApprovalPending,
	}

	return tpl, nil
}

// countPlaceholders validates {{n}} numbering and returns the count.
// Placeholders must run contiguously from {{1}}; a template referencing
// {{3}} without {{2}} is rejected.
func countPlaceholders(body string) (int, error) {
	if strings.TrimSpace(body) == "" {
		return 0, shared.NewDomainError("INVALID_BODY", "Template body cannot be empty")
	}

	matches := placeholderPattern.FindAllStringSubmatch(body, -1)
	seen := make(map[int]bool, len(matches))
	highest := 0
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return 0, shared.NewDomainError("INVALID_PLACEHOLDER", fmt.Sprintf("Invalid placeholder %s", m[0]))
		}
		seen[n] = true
		if n > highest {
			highest = n
		}
	}
	for i := 1; i <= highest; i++ {
		if !seen[i] {
			return 0, shared.NewDomainError("INVALID_PLACEHOLDER", fmt.Sprintf("Placeholder {{%d}} is missing; placeholders must be numbered contiguously from {{1}}", i))
		}
	}
	return highest, nil
}

// IsApproved reports whether the platform accepted the template
func (t *MessageTemplate) IsApproved() bool {
	return t.ApprovalStatus == TemplateApprovalApproved
}

// UpdateBody replaces the body and resets approval to pending
func (t *MessageTemplate) UpdateBody(body string) error {
	count, err := countPlaceholders(body)
	if err != nil {
		return err
	}
	t.Body = body
	t.PlaceholderCount = count
	t.ApprovalStatus = TemplateApprovalPending
	t.RejectionReason = ""
	t.markUpdated()
	return nil
}

// Approve records the platform's approval
func (t *MessageTemplate) Approve() error {
	if t.ApprovalStatus == TemplateApprovalApproved {
		return shared.NewDomainError("ALREADY_APPROVED", "Template is already approved")
	}
	t.ApprovalStatus = TemplateApprovalApproved
	t.RejectionReason = ""
	t.markUpdated()
	return nil
}

// Reject records the platform's rejection with its stated reason
func (t *MessageTemplate) Reject(reason string) error {
	if t.ApprovalStatus == TemplateApprovalRejected {
		return shared.NewDomainError("ALREADY_REJECTED", "Template is already rejected")
	}
	t.ApprovalStatus = TemplateApprovalRejected
	t.RejectionReason = reason
	t.markUpdated()
	return nil
}

// Render substitutes parameters into the template body. The parameter
// count must match the template's placeholder count exactly.
func (t *MessageTemplate) Render(params []string) (string, error) {
	if len(params) != t.PlaceholderCount {
		return "", shared.NewDomainError("PARAMETER_MISMATCH",
			fmt.Sprintf("Template %s expects %d parameters, got %d", t.Name, t.PlaceholderCount, len(params)))
	}

	rendered := t.Body
	for i, param := range params {
		rendered = strings.ReplaceAll(rendered, fmt.Sprintf("{{%d}}", i+1), param)
	}
	return rendered, nil
}

func (t *MessageTemplate) markUpdated() {
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}
