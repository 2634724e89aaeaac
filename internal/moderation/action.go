package moderation

// Action is a moderation verb. Dispatch is a registry lookup, not a string
// switch, so each handler stays independently testable.
type Action string

// Content actions.
const (
	ActionApproveContent Action = "approve_content"
	ActionRejectContent  Action = "reject_content"
	ActionDismissContent Action = "dismiss_content"
	ActionRemovePost     Action = "remove_post"
	ActionArchivePost    Action = "archive_post"
	ActionRemoveComment  Action = "remove_comment"
)

// User actions.
const (
	ActionWarnUser        Action = "warn_user"
	ActionBanUser         Action = "ban_user"
	ActionUnbanUser       Action = "unban_user"
	ActionActivateUser    Action = "activate_user"
	ActionFreezeUser      Action = "freeze_user"
	ActionUnfreezeUser    Action = "unfreeze_user"
	ActionDeleteUser      Action = "delete_user"
	ActionModerateUser    Action = "moderate_user"
	ActionGrantPremium    Action = "grant_premium"
	ActionRevokePremium   Action = "revoke_premium"
	ActionShadowBan       Action = "shadow_ban"
	ActionUnshadowBan     Action = "unshadow_ban"
	ActionRestrictFollow  Action = "restrict_follow"
	ActionRestrictLike    Action = "restrict_like"
	ActionRestrictComment Action = "restrict_comment"
	ActionUnverifyUser    Action = "unverify_user"
	ActionRevokeCopyright Action = "revoke_copyright"
)

// Report and withdrawal actions.
const (
	ActionResolveReport     Action = "resolve_report"
	ActionDismissReport     Action = "dismiss_report"
	ActionApproveWithdrawal Action = "approve_withdrawal"
	ActionRejectWithdrawal  Action = "reject_withdrawal"
)

// TargetType names the entity kind an action applies to.
type TargetType string

// Target types.
const (
	TargetPost       TargetType = "post"
	TargetComment    TargetType = "comment"
	TargetUser       TargetType = "user"
	TargetReport     TargetType = "report"
	TargetWithdrawal TargetType = "withdrawal"
)

// PremiumPlans are the plan values accepted by grant_premium.
var PremiumPlans = map[string]bool{
	"super":    true,
	"pro":      true,
	"max":      true,
	"business": true,
}

// actionTargets maps each verb to the target types it accepts. An action
// arriving with any other target type is a validation error.
var actionTargets = map[Action][]TargetType{
	ActionApproveContent: {TargetPost, TargetComment},
	ActionRejectContent:  {TargetPost, TargetComment},
	ActionDismissContent: {TargetPost, TargetComment, TargetUser},
	ActionRemovePost:     {TargetPost},
	ActionArchivePost:    {TargetPost},
	ActionRemoveComment:  {TargetComment},

	ActionWarnUser:        {TargetUser},
	ActionBanUser:         {TargetUser},
	ActionUnbanUser:       {TargetUser},
	ActionActivateUser:    {TargetUser},
	ActionFreezeUser:      {TargetUser},
	ActionUnfreezeUser:    {TargetUser},
	ActionDeleteUser:      {TargetUser},
	ActionModerateUser:    {TargetUser},
	ActionGrantPremium:    {TargetUser},
	ActionRevokePremium:   {TargetUser},
	ActionShadowBan:       {TargetUser},
	ActionUnshadowBan:     {TargetUser},
	ActionRestrictFollow:  {TargetUser},
	ActionRestrictLike:    {TargetUser},
	ActionRestrictComment: {TargetUser},
	ActionUnverifyUser:    {TargetUser},
	ActionRevokeCopyright: {TargetUser},

	ActionResolveReport:     {TargetReport},
	ActionDismissReport:     {TargetReport},
	ActionApproveWithdrawal: {TargetWithdrawal},
	ActionRejectWithdrawal:  {TargetWithdrawal},
}

func allowsTarget(action Action, target TargetType) bool {
	for _, t := range actionTargets[action] {
		if t == target {
			return true
		}
	}
	return false
}
