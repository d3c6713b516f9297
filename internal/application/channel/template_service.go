package channel

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// TemplateService manages message templates through Meta's approval
// lifecycle. Only approved templates can be queued for sending.
type TemplateService struct {
	templateRepo channel.TemplateRepository
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templateRepo channel.TemplateRepository) *TemplateService {
	return &TemplateService{templateRepo: templateRepo}
}

// Register registers a template pending platform approval. The
// platform/name/language key must be unique per tenant.
func (s *TemplateService) Register(ctx context.Context, req RegisterTemplateRequest) (*TemplateResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	platform := channel.Platform(req.Platform)
	existing, err := s.templateRepo.FindByKey(ctx, platform, req.Name, req.Language)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A template with this name and language already exists")
	}

	category := channel.TemplateCategory(req.Category)
	if req.Category == "" {
		category = channel.TemplateCategoryUtility
	}

	tpl, err := channel.NewMessageTemplate(tenantID, platform, req.Name, req.Language, req.Body, category)
	if err != nil {
		return nil, err
	}

	if err := s.templateRepo.Save(ctx, tpl); err != nil {
		return nil, err
	}

	response := ToTemplateResponse(tpl)
	return &response, nil
}

// UpdateBody replaces a template's body, resetting approval to pending
func (s *TemplateService) UpdateBody(ctx context.Context, templateID uuid.UUID, body string) (*TemplateResponse, error) {
	return s.modify(ctx, templateID, func(t *channel.MessageTemplate) error {
		return t.UpdateBody(body)
	})
}

// Approve records the platform's approval of a template
func (s *TemplateService) Approve(ctx context.Context, templateID uuid.UUID) (*TemplateResponse, error) {
	return s.modify(ctx, templateID, (*channel.MessageTemplate).Approve)
}

// Reject records the platform's rejection with its stated reason
func (s *TemplateService) Reject(ctx context.Context, templateID uuid.UUID, reason string) (*TemplateResponse, error) {
	return s.modify(ctx, templateID, func(t *channel.MessageTemplate) error {
		return t.Reject(reason)
	})
}

func (s *TemplateService) modify(ctx context.Context, templateID uuid.UUID, op func(*channel.MessageTemplate) error) (*TemplateResponse, error) {
	tpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := op(tpl); err != nil {
		return nil, err
	}
	if err := s.templateRepo.Save(ctx, tpl); err != nil {
		return nil, err
	}
	response := ToTemplateResponse(tpl)
	return &response, nil
}

// Delete removes a template
func (s *TemplateService) Delete(ctx context.Context, templateID uuid.UUID) error {
	if _, err := s.templateRepo.FindByID(ctx, templateID); err != nil {
		return err
	}
	return s.templateRepo.Delete(ctx, templateID)
}

// Get retrieves a template by ID
func (s *TemplateService) Get(ctx context.Context, templateID uuid.UUID) (*TemplateResponse, error) {
	tpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	response := ToTemplateResponse(tpl)
	return &response, nil
}

// Preview renders a template with the given parameters without sending
func (s *TemplateService) Preview(ctx context.Context, templateID uuid.UUID, params []string) (string, error) {
	tpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return "", err
	}
	return tpl.Render(params)
}

// List retrieves templates matching the filter
func (s *TemplateService) List(ctx context.Context, filter TemplateListFilter) ([]TemplateResponse, int64, error) {
	domainFilter := toTemplateDomainFilter(filter)

	templates, err := s.templateRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.templateRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToTemplateResponses(templates), total, nil
}

func toTemplateDomainFilter(filter TemplateListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "name",
		OrderDir: "asc",
		Filters:  make(map[string]interface{}),
	}
	if filter.Platform != "" {
		domainFilter.Filters["platform"] = filter.Platform
	}
	if filter.Status != "" {
		domainFilter.Filters["approval_status"] = filter.Status
	}
	return domainFilter
}
