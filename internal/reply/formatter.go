package reply

import (
	"fmt"
	"strings"

	"wedding-seatbot/internal/models"
)

// User-facing replies for each lookup outcome
const (
	TooShortReply   = "請輸入完整姓名或暱稱喔！例如：「王小明坐哪裡？」"
	NotFoundReply   = "我查不到這位賓客喔！請確認姓名是否正確，或改用暱稱再試一次。"
	TooManyReply    = "符合的賓客太多了，請輸入更完整的姓名。"
	UnexpectedReply = "發生未預期的錯誤，請稍後再試一次。"

	// ApologyReply is sent when a background task fails internally.
	ApologyReply = "抱歉，我現在有點忙不過來，請稍後再問我一次。"

	header     = "幫你查到以下座位："
	unassigned = "尚未安排"
)

var roleLabels = map[models.RelationRole]string{
	models.RoleSelf:   "本人",
	models.RoleSpouse: "配偶",
	models.RoleChild:  "子女",
	models.RoleGuest:  "同行賓客",
	models.RoleOther:  "親友",
}

// RoleLabel returns the display label for a relation role
func RoleLabel(r models.RelationRole) string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return roleLabels[models.RoleOther]
}

// Format renders a lookup result. It never fails and always returns a
// non-empty reply.
func Format(res models.Result) string {
	switch res.Status {
	case models.StatusTooShort:
		return TooShortReply
	case models.StatusNotFound:
		return NotFoundReply
	case models.StatusTooMany:
		return TooManyReply
	case models.StatusOK:
		return formatBundles(res.Bundles)
	default:
		return UnexpectedReply
	}
}

func formatBundles(bundles []models.FamilyBundle) string {
	if len(bundles) == 0 {
		return NotFoundReply
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")

	for i, bundle := range bundles {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s一家 -\n", bundle.Who)
		for _, m := range bundle.Members {
			b.WriteString(formatMember(m))
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), " \t\n")
}

func formatMember(m models.GuestRecord) string {
	label := RoleLabel(m.RelationRole)
	if seat, ok := m.Seat(); ok {
		return fmt.Sprintf("%s (%s)：第 %d 桌", m.ShowName(), label, seat)
	}
	return fmt.Sprintf("%s (%s)：%s", m.ShowName(), label, unassigned)
}
