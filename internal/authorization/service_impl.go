package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/fablehold/fablehold/internal/actor"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

var (
	ErrInvalidActor = errors.New("invalid_actor")
	ErrForbidden    = errors.New("forbidden")
)

const (
	RolePlayer    = "role:player"
	RoleMaster    = "role:master"
	RoleModerator = "role:moderator"
	RoleAdmin     = "role:admin"
)

// capabilityPolicies maps each role to the capabilities it grants. Roles are
// cumulative: moderator includes master, admin includes everything.
var capabilityPolicies = [][3]string{
	{RoleModerator, "report", string(actor.CapabilityReportModerate)},
	{RoleAdmin, "report", string(actor.CapabilityReportCancel)},
	{RoleAdmin, "element", string(actor.CapabilityElementManage)},
	{RoleAdmin, "battlepass", string(actor.CapabilityBattlepassManage)},
	{RoleAdmin, "group", string(actor.CapabilityGroupManage)},
	{RoleAdmin, "role", string(actor.CapabilityRoleManage)},
}

var roleHierarchy = [][2]string{
	{RoleMaster, RolePlayer},
	{RoleModerator, RoleMaster},
	{RoleAdmin, RoleModerator},
}

// capabilityObjects pairs each known capability with its casbin object.
var capabilityObjects = map[actor.Capability]string{
	actor.CapabilityReportModerate:   "report",
	actor.CapabilityReportCancel:     "report",
	actor.CapabilityElementManage:    "element",
	actor.CapabilityBattlepassManage: "battlepass",
	actor.CapabilityGroupManage:      "group",
	actor.CapabilityRoleManage:       "role",
}

type Service interface {
	// ResolveActor builds the explicit capability set for a user.
	ResolveActor(ctx context.Context, userID snowflake.ID) (actor.Actor, error)
	// GrantRole assigns a role to a user.
	GrantRole(ctx context.Context, userID snowflake.ID, role string) error
	// RevokeRole removes a role from a user.
	RevokeRole(ctx context.Context, userID snowflake.ID, role string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, p := range capabilityPolicies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return err
		}
	}
	for _, g := range roleHierarchy {
		if _, err := enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return err
		}
	}
	return nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) ResolveActor(ctx context.Context, userID snowflake.ID) (actor.Actor, error) {
	if userID == 0 {
		return actor.Actor{}, ErrInvalidActor
	}

	subject := subjectFor(userID)
	caps := make([]actor.Capability, 0, len(capabilityObjects))
	for capability, object := range capabilityObjects {
		allowed, err := s.enforcer.Enforce(subject, object, string(capability))
		if err != nil {
			return actor.Actor{}, err
		}
		if allowed {
			caps = append(caps, capability)
		}
	}
	return actor.New(userID, caps...), nil
}

func (s *ServiceImpl) GrantRole(ctx context.Context, userID snowflake.ID, role string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	role = normalizeRole(role)
	if role == "" {
		return fmt.Errorf("unknown role")
	}
	_, err := s.enforcer.AddGroupingPolicy(subjectFor(userID), role)
	return err
}

func (s *ServiceImpl) RevokeRole(ctx context.Context, userID snowflake.ID, role string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	role = normalizeRole(role)
	if role == "" {
		return fmt.Errorf("unknown role")
	}
	_, err := s.enforcer.RemoveGroupingPolicy(subjectFor(userID), role)
	return err
}

func subjectFor(userID snowflake.ID) string {
	return "user:" + userID.String()
}

func normalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case "player", RolePlayer:
		return RolePlayer
	case "master", RoleMaster:
		return RoleMaster
	case "moderator", RoleModerator:
		return RoleModerator
	case "admin", RoleAdmin:
		return RoleAdmin
	default:
		return ""
	}
}

var Module = fx.Module("authorization",
	fx.Provide(
		NewEnforcer,
		NewService,
	),
)
