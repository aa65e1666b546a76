package application

import (
	"fmt"
	"sort"

	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/adapter"
)

// Callback data prefixes routed by the bot adapter.
const (
	cbBuy    = "buy"    // buy:<product>
	cbMethod = "method" // method:<product>:<kind>
	cbAsset  = "asset"  // asset:<payment_id>:<asset>
	cbJoin   = "join"
	cbMenu   = "menu"
	cbCancel = "cancel"
)

func mainMenuKeyboard() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: "🛒 Buy", Data: cbBuy}},
		{{Text: "🚪 Join the club", Data: cbJoin}},
	}
}

func productKeyboard(products []model.Product) [][]adapter.InlineButton {
	sort.Slice(products, func(i, j int) bool { return products[i].Type < products[j].Type })
	rows := make([][]adapter.InlineButton, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, []adapter.InlineButton{{
			Text: fmt.Sprintf("%s — %d", p.DisplayName, p.Amount),
			Data: fmt.Sprintf("%s:%s", cbBuy, p.Type),
		}})
	}
	rows = append(rows, []adapter.InlineButton{{Text: "« Back", Data: cbMenu}})
	return rows
}

func methodKeyboard(product model.ProductType) [][]adapter.InlineButton {
	row := func(text string, kind model.MethodKind) []adapter.InlineButton {
		return []adapter.InlineButton{{
			Text: text,
			Data: fmt.Sprintf("%s:%s:%s", cbMethod, product, kind),
		}}
	}
	return [][]adapter.InlineButton{
		row("💳 Card transfer", model.MethodCard),
		row("⭐ Telegram Stars", model.MethodStars),
		row("🪙 Crypto", model.MethodCrypto),
		{{Text: "« Back", Data: cbBuy}},
	}
}

func assetKeyboard(paymentID string, assets []string) [][]adapter.InlineButton {
	sort.Strings(assets)
	rows := make([][]adapter.InlineButton, 0, len(assets)+1)
	for _, a := range assets {
		rows = append(rows, []adapter.InlineButton{{
			Text: a,
			Data: fmt.Sprintf("%s:%s:%s", cbAsset, paymentID, a),
		}})
	}
	rows = append(rows, []adapter.InlineButton{{Text: "✖ Cancel", Data: cbCancel}})
	return rows
}
