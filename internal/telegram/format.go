package telegram

import (
	"fmt"
	"strings"

	"shared-menu/internal/dish"
	"shared-menu/internal/metrics"
	"shared-menu/internal/shopping"
	"shared-menu/internal/wish"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// parseMode is used for every message. MarkdownV2 honours backslash escapes
// inside entities, so user text can sit between the markers.
const parseMode = tgbotapi.ModeMarkdownV2

func escape(s string) string {
	return tgbotapi.EscapeText(parseMode, s)
}

// escapef formats then escapes, for lines without entities.
func escapef(format string, args ...any) string {
	return escape(fmt.Sprintf(format, args...))
}

func bold(s string) string {
	return "*" + escape(s) + "*"
}

func italic(s string) string {
	return "_" + escape(s) + "_"
}

func formatWishMarkdown(d dish.Dish) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("❤️ %s wishes for %s", bold(string(d.CreatedBy.Other())), bold(d.Name)))
	sb.WriteString(escapef(" (%d min)", d.CookingTimeMinutes) + "\n")
	if d.Description != "" {
		sb.WriteString(italic(d.Description) + "\n")
	}
	return sb.String()
}

func formatShoppingListMarkdown(list *shopping.ShoppingList, dishes []dish.Dish) string {
	var sb strings.Builder
	sb.WriteString("🛒 " + bold("Shopping List") + "\n\n")

	if len(dishes) > 0 {
		names := make([]string, len(dishes))
		for i, d := range dishes {
			names[i] = d.Name
		}
		sb.WriteString("🍽 " + escape(strings.Join(names, ", ")) + "\n")
		sb.WriteString("⏱ " + bold("Total cooking:") + escapef(" %d mins", wish.TotalCookingMinutes(dishes)) + "\n\n")
	}

	for _, g := range list.Content.Groups {
		if len(g.Ingredients) == 0 {
			continue
		}
		sb.WriteString(bold(g.Category.Label()) + "\n")
		for _, ing := range g.Ingredients {
			if ing.Quantity != "" {
				sb.WriteString(escapef("• %s: %s", ing.Name, ing.Quantity) + "\n")
			} else {
				sb.WriteString(escapef("• %s", ing.Name) + "\n")
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatUsageReport(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 " + bold("Usage & Health Report") + "\n\n")

	sb.WriteString("🗓 " + bold("Recent LLM Activity") + "\n")
	if len(usage) == 0 {
		sb.WriteString(italic("No data yet") + "\n")
	}
	for _, d := range usage {
		sb.WriteString("• " + bold(d.Date) + escapef(": %d tokens (%d execs)", d.TotalPrompt+d.TotalCompletion, d.TotalExecution) + "\n")
	}

	sb.WriteString("\n🧠 " + bold("System Health") + "\n")
	sb.WriteString(escapef("• RAM: %dMB (Alloc) / %dMB (Sys)", health.AllocMB, health.SysMB) + "\n")
	sb.WriteString(escapef("• Goroutines: %d", health.Goroutines) + "\n")
	sb.WriteString(escapef("• Disk Data: %s", health.DataDiskSize) + "\n")
	return sb.String()
}
