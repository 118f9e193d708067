package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/divvyup/divvyup-backend/pkg/db"
	"github.com/divvyup/divvyup-backend/pkg/db/models"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
)

// Resolution is the outcome of mapping an identity to a membership.
// CanMerge signals that the membership was found under the guest cookie
// while the request is authenticated, so the caller may upgrade it.
type Resolution struct {
	Membership *models.RoomMember
	CanMerge   bool
}

// JoinResult carries the membership plus the guest id backing it (empty
// for user-identified memberships) so the transport can persist the
// cookie.
type JoinResult struct {
	Membership *models.RoomMember
	GuestID    string
}

type roomReader interface {
	FindByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
}

// Service exposes membership resolution, joining, and guest upgrades.
type Service interface {
	Resolve(ctx context.Context, identity Identity, roomID uuid.UUID) (Resolution, error)
	Join(ctx context.Context, identity Identity, roomID uuid.UUID, displayName string) (JoinResult, error)
	UpgradeGuestToUser(ctx context.Context, identity Identity, roomID uuid.UUID, displayName string) (*models.RoomMember, error)
}

// ServiceParams groups dependencies for the membership service.
type ServiceParams struct {
	MemberRepo *Repository
	RoomRepo   roomReader
}

type service struct {
	memberRepo *Repository
	roomRepo   roomReader
}

// NewService builds the membership service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.MemberRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member repo is required")
	}
	if params.RoomRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room repo is required")
	}
	return &service{memberRepo: params.MemberRepo, roomRepo: params.RoomRepo}, nil
}

// Resolve maps the identity onto an existing membership without creating
// one. User memberships win over guest memberships; a guest hit under an
// authenticated identity is flagged mergeable.
func (s *service) Resolve(ctx context.Context, identity Identity, roomID uuid.UUID) (Resolution, error) {
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return Resolution{}, err
	}

	if userID, ok := identity.UserID(); ok {
		member, err := s.memberRepo.FindByUser(ctx, roomID, userID)
		switch {
		case err == nil:
			return Resolution{Membership: member}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
		}

		if guestID, ok := identity.GuestID(); ok {
			member, err := s.memberRepo.FindByGuest(ctx, roomID, guestID)
			switch {
			case err == nil:
				// A user-backed row here belongs to someone else: the
				// caller's own lookup above already missed. The cookie is
				// stale and grants nothing.
				if member.IsGuest() {
					return Resolution{Membership: member, CanMerge: true}, nil
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest membership")
			}
		}
		return Resolution{}, nil
	}

	if guestID, ok := identity.GuestID(); ok {
		member, err := s.memberRepo.FindByGuest(ctx, roomID, guestID)
		switch {
		case err == nil:
			return Resolution{Membership: member}, nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			return Resolution{}, nil
		default:
			return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest membership")
		}
	}

	return Resolution{}, nil
}

// UpgradeGuestToUser rewrites the guest membership's identity in place.
// The row's primary key is untouched, which is what keeps previously
// recorded claims attached through the upgrade.
func (s *service) UpgradeGuestToUser(ctx context.Context, identity Identity, roomID uuid.UUID, displayName string) (*models.RoomMember, error) {
	userID, hasUser := identity.UserID()
	guestID, hasGuest := identity.GuestID()
	if !hasUser || !hasGuest {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upgrade requires both a guest and a user identity")
	}

	member, err := s.memberRepo.FindByGuest(ctx, roomID, guestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "guest membership not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest membership")
	}

	if !member.IsGuest() {
		if *member.UserID == userID {
			return member, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "membership already belongs to another user")
	}

	name := displayName
	if name == "" {
		name = identity.DisplayName()
	}
	upgraded, err := s.memberRepo.AttachUser(ctx, member.ID, userID, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upgrade membership")
	}
	return upgraded, nil
}

// Join resolves or creates a membership. Joining twice is a no-op; an
// authenticated join over an existing guest membership upgrades it; an
// anonymous join mints a fresh guest id the caller must hand back to the
// client.
func (s *service) Join(ctx context.Context, identity Identity, roomID uuid.UUID, displayName string) (JoinResult, error) {
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return JoinResult{}, err
	}

	resolution, err := s.Resolve(ctx, identity, roomID)
	if err != nil {
		return JoinResult{}, err
	}

	if resolution.Membership != nil {
		if resolution.CanMerge {
			upgraded, err := s.UpgradeGuestToUser(ctx, identity, roomID, displayName)
			if err != nil {
				return JoinResult{}, err
			}
			return JoinResult{Membership: upgraded, GuestID: guestIDOf(upgraded)}, nil
		}
		return JoinResult{Membership: resolution.Membership, GuestID: guestIDOf(resolution.Membership)}, nil
	}

	member := &models.RoomMember{RoomID: roomID}
	guestID := ""

	if userID, ok := identity.UserID(); ok {
		member.UserID = &userID
		member.DisplayName = firstNonEmpty(displayName, identity.DisplayName(), defaultGuestName(userID.String()))
	} else {
		guestID, _ = identity.GuestID()
		if guestID == "" {
			guestID = uuid.NewString()
		}
		member.GuestID = &guestID
		member.DisplayName = firstNonEmpty(displayName, defaultGuestName(guestID))
	}

	if err := s.memberRepo.Create(ctx, member); err != nil {
		if db.IsUniqueViolation(err, "") {
			// Lost a concurrent join race; the winning row is ours.
			retry, rerr := s.Resolve(ctx, identity.WithGuestCookie(guestID), roomID)
			if rerr == nil && retry.Membership != nil {
				return JoinResult{Membership: retry.Membership, GuestID: guestIDOf(retry.Membership)}, nil
			}
		}
		return JoinResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create membership")
	}

	return JoinResult{Membership: member, GuestID: guestID}, nil
}

func (s *service) ensureRoom(ctx context.Context, roomID uuid.UUID) error {
	if roomID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "room id is required")
	}
	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load room")
	}
	return nil
}

func guestIDOf(member *models.RoomMember) string {
	if member == nil || member.GuestID == nil {
		return ""
	}
	return *member.GuestID
}

// defaultGuestName derives the "Guest 4a9f" style name from an id prefix.
func defaultGuestName(id string) string {
	short := id
	if len(short) > 4 {
		short = short[:4]
	}
	return fmt.Sprintf("Guest %s", short)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
