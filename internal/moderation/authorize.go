package moderation

import (
	"context"
	"errors"

	"warden/internal/models"

	"gorm.io/gorm"
)

// adminOnly lists the verbs that require the admin role. A moderator
// invoking one of these receives Forbidden.
var adminOnly = map[Action]bool{
	ActionGrantPremium:    true,
	ActionRevokePremium:   true,
	ActionDeleteUser:      true,
	ActionUnverifyUser:    true,
	ActionRevokeCopyright: true,
}

// punitive lists the (action, target type) pairs that must never be applied
// to an admin-role account. For content targets the check resolves the
// author's role.
var punitive = map[Action][]TargetType{
	ActionWarnUser:       {TargetUser},
	ActionBanUser:        {TargetUser},
	ActionFreezeUser:     {TargetUser},
	ActionDeleteUser:     {TargetUser},
	ActionModerateUser:   {TargetUser},
	ActionRejectContent:  {TargetPost, TargetComment},
	ActionDismissContent: {TargetPost, TargetComment, TargetUser},
	ActionRemovePost:     {TargetPost},
	ActionArchivePost:    {TargetPost},
	ActionRemoveComment:  {TargetComment},
}

func isPunitive(action Action, target TargetType) bool {
	for _, t := range punitive[action] {
		if t == target {
			return true
		}
	}
	return false
}

// authorize enforces the gate described by the command: staff check,
// admin-only verbs, and the protected-actor rule. Target roles are looked up
// fresh on every call since roles can change between actions.
func (e *Engine) authorize(ctx context.Context, cmd *Command) error {
	if cmd.Actor.ID == 0 {
		return models.NewUnauthorizedError("authentication required")
	}
	if !cmd.Actor.IsStaff() {
		return models.NewForbiddenError("moderator or admin role required")
	}
	if adminOnly[cmd.Action] && cmd.Actor.Role != models.RoleAdmin {
		return models.NewForbiddenError("admin role required for " + string(cmd.Action))
	}

	if !isPunitive(cmd.Action, cmd.TargetType) {
		return nil
	}

	role, err := e.targetRole(ctx, cmd.TargetType, cmd.TargetID)
	if err != nil {
		// A missing target is the handler's no-op case, not a gate failure.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return models.NewInternalError(err)
	}
	if role == models.RoleAdmin {
		return models.NewForbiddenError("target account is protected")
	}
	return nil
}

// targetRole resolves the role of the account a punitive action would hit:
// the user itself, or the content item's author.
func (e *Engine) targetRole(ctx context.Context, target TargetType, id uint) (models.Role, error) {
	db := e.db.WithContext(ctx)

	var authorID uint
	switch target {
	case TargetUser:
		authorID = id
	case TargetPost:
		var post models.Post
		if err := db.Select("user_id").First(&post, id).Error; err != nil {
			return "", err
		}
		authorID = post.UserID
	case TargetComment:
		var comment models.Comment
		if err := db.Select("user_id").First(&comment, id).Error; err != nil {
			return "", err
		}
		authorID = comment.UserID
	default:
		return "", nil
	}

	var user models.User
	if err := db.Select("role").First(&user, authorID).Error; err != nil {
		return "", err
	}
	return user.Role, nil
}
