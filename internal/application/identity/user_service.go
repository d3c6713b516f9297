package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/auth"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// UserService manages a tenant's staff: registration, roles and account
// lifecycle. Only owners and managers may manage staff; the acting user
// is loaded and checked on every mutating call.
type UserService struct {
	userRepo       identity.UserRepository
	jwtService     *auth.JWTService
	blacklist      auth.TokenBlacklist
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewUserService creates a new staff management service
func NewUserService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *UserService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Register creates a staff account. Email must be unique within the tenant.
func (s *UserService) Register(ctx context.Context, actorID uuid.UUID, req RegisterUserRequest) (*UserResponse, error) {
	if err := s.requireStaffManager(ctx, actorID); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("A user with email %s already exists", req.Email))
	}

	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	user, err := identity.NewUser(tenantID, req.Email, req.Name, req.Password, identity.Role(req.Role))
	if err != nil {
		return nil, err
	}
	if req.Phone != "" {
		if err := user.Update(req.Name, req.Phone); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("staff user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	response := ToUserResponse(user)
	return &response, nil
}

// Update updates a staff member's profile fields
func (s *UserService) Update(ctx context.Context, userID uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	return s.modify(ctx, userID, func(u *identity.User) error {
		return u.Update(req.Name, req.Phone)
	})
}

// ChangeRole changes a staff member's role. Demoting the last active
// owner is refused; a tenant without an owner cannot manage itself.
func (s *UserService) ChangeRole(ctx context.Context, actorID, userID uuid.UUID, req ChangeRoleRequest) (*UserResponse, error) {
	if err := s.requireStaffManager(ctx, actorID); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == identity.RoleOwner && identity.Role(req.Role) != identity.RoleOwner {
		if err := s.ensureNotLastOwner(ctx, user); err != nil {
			return nil, err
		}
	}

	if err := user.ChangeRole(identity.Role(req.Role)); err != nil {
		return nil, err
	}
	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("staff role changed",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	response := ToUserResponse(user)
	return &response, nil
}

// Deactivate disables a staff account and revokes all of its tokens
func (s *UserService) Deactivate(ctx context.Context, actorID, userID uuid.UUID) (*UserResponse, error) {
	if err := s.requireStaffManager(ctx, actorID); err != nil {
		return nil, err
	}
	if actorID == userID {
		return nil, shared.NewDomainError("CANNOT_DEACTIVATE_SELF", "You cannot deactivate your own account")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == identity.RoleOwner {
		if err := s.ensureNotLastOwner(ctx, user); err != nil {
			return nil, err
		}
	}

	if err := user.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, user); err != nil {
		return nil, err
	}

	if err := s.blacklist.AddUserTokensToBlacklist(ctx, userID.String(), s.jwtService.GetRefreshTokenExpiration()); err != nil {
		s.logger.Error("failed to revoke tokens for deactivated user",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	s.logger.Info("staff user deactivated", zap.String("user_id", user.ID.String()))

	response := ToUserResponse(user)
	return &response, nil
}

// Reactivate restores a deactivated or locked staff account
func (s *UserService) Reactivate(ctx context.Context, actorID, userID uuid.UUID) (*UserResponse, error) {
	if err := s.requireStaffManager(ctx, actorID); err != nil {
		return nil, err
	}
	return s.modify(ctx, userID, (*identity.User).Reactivate)
}

// ResetPassword sets a new password without the current one, then revokes
// every token the user holds
func (s *UserService) ResetPassword(ctx context.Context, actorID, userID uuid.UUID, req ResetPasswordRequest) error {
	if err := s.requireStaffManager(ctx, actorID); err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		return err
	}
	if err := s.publish(ctx, user); err != nil {
		return err
	}

	if err := s.blacklist.AddUserTokensToBlacklist(ctx, userID.String(), s.jwtService.GetRefreshTokenExpiration()); err != nil {
		s.logger.Error("failed to revoke tokens after password reset",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	s.logger.Info("staff password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// Get retrieves a staff member by ID
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	response := ToUserResponse(user)
	return &response, nil
}

// List retrieves staff members matching the filter
func (s *UserService) List(ctx context.Context, filter UserListFilter) ([]UserResponse, int64, error) {
	domainFilter := toUserDomainFilter(filter)

	var users []identity.User
	var err error
	if filter.Role != "" {
		users, err = s.userRepo.FindByRole(ctx, identity.Role(filter.Role), domainFilter)
	} else {
		users, err = s.userRepo.FindAll(ctx, domainFilter)
	}
	if err != nil {
		return nil, 0, err
	}

	total, err := s.userRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToUserResponses(users), total, nil
}

func (s *UserService) modify(ctx context.Context, userID uuid.UUID, op func(*identity.User) error) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := op(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, user); err != nil {
		return nil, err
	}
	response := ToUserResponse(user)
	return &response, nil
}

// requireStaffManager loads the acting user and checks their role
func (s *UserService) requireStaffManager(ctx context.Context, actorID uuid.UUID) error {
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return shared.NewDomainError("FORBIDDEN", "Acting user not found")
	}
	if !actor.Role.CanManageStaff() {
		return shared.NewDomainError("FORBIDDEN", "Only owners and managers can manage staff")
	}
	return nil
}

// ensureNotLastOwner refuses operations that would leave the tenant
// without an active owner
func (s *UserService) ensureNotLastOwner(ctx context.Context, target *identity.User) error {
	owners, err := s.userRepo.FindByRole(ctx, identity.RoleOwner, shared.Filter{Page: 1, PageSize: 100})
	if err != nil {
		return err
	}
	for i := range owners {
		if owners[i].ID != target.ID && owners[i].IsActive() {
			return nil
		}
	}
	return shared.NewDomainError("LAST_OWNER", "The last active owner cannot be demoted or deactivated")
}

func toUserDomainFilter(filter UserListFilter) shared.Filter {
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
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	return domainFilter
}

func (s *UserService) publish(ctx context.Context, user *identity.User) error {
	if s.eventPublisher == nil {
		user.ClearDomainEvents()
		return nil
	}
	if err := s.eventPublisher.Publish(ctx, user.GetDomainEvents()...); err != nil {
		return err
	}
	user.ClearDomainEvents()
	return nil
}
