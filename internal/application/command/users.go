package command

import (
	"context"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/application/service"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER ADMINISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand mirrors an identity created by the identity provider.
type RegisterUserCommand struct {
	Email     string `validate:"required,email"`
	FirstName string `validate:"max=100"`
	LastName  string `validate:"max=100"`
	Role      string `validate:"omitempty,oneof=admin moderator regular"`
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	return validateStruct("RegisterUser", c)
}

// ChangeRoleCommand changes another user's role.
type ChangeRoleCommand struct {
	ActorID string `validate:"required"`
	UserID  string `validate:"required"`
	Role    string `validate:"required,oneof=admin moderator regular"`
}

// Validate validates the command.
func (c ChangeRoleCommand) Validate() error {
	return validateStruct("ChangeRole", c)
}

// GrantXPCommand is a manual grant by an administrator.
type GrantXPCommand struct {
	ActorID string `validate:"required"`
	UserID  string `validate:"required"`
	Amount  int    `validate:"gt=0"`
	Source  string `validate:"required"`
	Reason  string `validate:"max=500"`
}

// Validate validates the command.
func (c GrantXPCommand) Validate() error {
	return validateStruct("GrantXP", c)
}

// UserHandler handles user administration commands.
type UserHandler struct {
	tx     shared.TxManager
	users  user.Repository
	ledger *service.XPLedger
	events shared.EventPublisher
	logger *logger.Logger
}

// NewUserHandler creates the handler.
func NewUserHandler(tx shared.TxManager, users user.Repository, ledger *service.XPLedger, events shared.EventPublisher, log *logger.Logger) *UserHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &UserHandler{
		tx:     tx,
		users:  users,
		ledger: ledger,
		events: events,
		logger: log.With(logger.String("handler", "users")),
	}
}

// Register creates the user. Registering a moderator notifies admins.
func (h *UserHandler) Register(ctx context.Context, cmd RegisterUserCommand) (*user.User, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var created *user.User
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := user.NewUser(user.NewUserParams{
			Email:     cmd.Email,
			FirstName: cmd.FirstName,
			LastName:  cmd.LastName,
			Role:      user.Role(cmd.Role),
		})
		if err != nil {
			return err
		}
		if err := h.users.Create(ctx, u); err != nil {
			return err
		}
		created = u
		if u.Role == user.RoleModerator {
			return h.events.Publish(ctx, shared.NewModeratorAppointedEvent(u.ID, u.Email, u.FullName()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("user registered", logger.UserID(created.ID), logger.String("role", string(created.Role)))
	return created, nil
}

// ChangeRole requires manage_users. Promotion to moderator notifies admins.
func (h *UserHandler) ChangeRole(ctx context.Context, cmd ChangeRoleCommand) (*user.User, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	role, err := user.ParseRole(cmd.Role)
	if err != nil {
		return nil, err
	}

	var updated *user.User
	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		actor, err := h.users.GetByID(ctx, cmd.ActorID)
		if err != nil {
			return err
		}
		if err := actor.Require(user.CapabilityManageUsers); err != nil {
			return err
		}

		target, err := h.users.GetForUpdate(ctx, cmd.UserID)
		if err != nil {
			return err
		}
		if target.Role == role {
			updated = target
			return nil
		}
		if err := h.users.UpdateRole(ctx, target.ID, role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		target.Role = role
		updated = target

		if role == user.RoleModerator {
			return h.events.Publish(ctx, shared.NewModeratorAppointedEvent(target.ID, target.Email, target.FullName()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GrantXP requires manage_users and goes through the ledger.
func (h *UserHandler) GrantXP(ctx context.Context, cmd GrantXPCommand) (*service.GrantResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var result *service.GrantResult
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		actor, err := h.users.GetByID(ctx, cmd.ActorID)
		if err != nil {
			return err
		}
		if err := actor.Require(user.CapabilityManageUsers); err != nil {
			return err
		}
		result, err = h.ledger.Grant(ctx, xp.Grant{
			UserID: cmd.UserID,
			Amount: cmd.Amount,
			Source: xp.Source(cmd.Source),
			Reason: cmd.Reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
