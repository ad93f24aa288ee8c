// Package bot implements the operator command surface: health probes,
// manual scans, state inspection and per-event media management.
package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"kaspa-market-watch/internal/cache"
	"kaspa-market-watch/internal/ingestion"
	"kaspa-market-watch/internal/notify"
	"kaspa-market-watch/internal/state"
)

// command -> media slot for the /set*media family.
var mediaSlotCommands = map[string]string{
	"setlistedmedia": state.MediaListed,
	"setsoldmedia":   state.MediaSold,
	"setlevelmedia":  state.MediaLevel,
	"settokenmedia":  state.MediaToken,
	"setdexmedia":    state.MediaDex,
	"setbigbuymedia": state.MediaBigBuy,
}

// adminCommands require the admin chat.
var adminCommands = map[string]bool{
	"scan":       true,
	"debug":      true,
	"resetstate": true,
	"clearmedia": true,
	"media":      true,
}

// Handler executes commands against the engine. It is transport-agnostic:
// the Telegram loop feeds it parsed commands and media attachments.
type Handler struct {
	Runner      *ingestion.Runner
	Levels      *cache.LevelsCache
	Rarity      *cache.RarityCache
	AdminChatID int64
	Logger      *log.Logger
}

// HandleCommand runs one slash command and returns the reply text.
func (h *Handler) HandleCommand(ctx context.Context, command, args string, chatID int64) string {
	command = strings.ToLower(command)
	if h.restricted(command) && !h.isAdmin(chatID) {
		return "Not authorized."
	}

	if slot, ok := mediaSlotCommands[command]; ok {
		return h.awaitMedia(slot)
	}

	switch command {
	case "ping":
		return "pong"
	case "chatid":
		return fmt.Sprintf("Chat id: `%d`", chatID)
	case "scan":
		if err := h.Runner.Tick(ctx, "manual"); err != nil {
			return fmt.Sprintf("Scan failed: %v", err)
		}
		return "Scan complete."
	case "debug":
		return h.debug()
	case "resetstate":
		if err := h.Runner.Reset(); err != nil {
			return fmt.Sprintf("Reset failed: %v", err)
		}
		return "State cleared. The next scan starts from a fresh snapshot."
	case "level":
		return h.level(args)
	case "rarity":
		return h.rarity(args)
	case "media":
		return h.mediaStatus()
	case "clearmedia":
		return h.clearMedia(args)
	default:
		return ""
	}
}

// HandleMedia captures an inbound media attachment into the awaited slot, if
// any. Returns the reply text, empty when nothing was awaited.
func (h *Handler) HandleMedia(kind, fileID string, chatID int64) string {
	if !h.isAdmin(chatID) {
		return ""
	}
	var reply string
	err := h.Runner.Mutate(func(snap *state.Snapshot) {
		slot := snap.Awaiting
		if slot == "" {
			return
		}
		snap.Media[slot] = &state.MediaRef{Kind: kind, FileID: fileID}
		snap.Awaiting = ""
		reply = fmt.Sprintf("Saved %s media for the %s event.", kind, slot)
	})
	if err != nil {
		h.logger().Printf("bot: media capture failed: %v", err)
		return fmt.Sprintf("Could not save media: %v", err)
	}
	return reply
}

func (h *Handler) awaitMedia(slot string) string {
	if err := h.Runner.Mutate(func(snap *state.Snapshot) {
		snap.Awaiting = slot
	}); err != nil {
		return fmt.Sprintf("Could not arm media capture: %v", err)
	}
	return fmt.Sprintf("Send the photo, GIF or video to use for the %s event.", slot)
}

func (h *Handler) clearMedia(args string) string {
	slot := strings.TrimSpace(strings.ToLower(args))
	if slot == "" {
		return "Usage: /clearmedia <" + strings.Join(state.MediaSlots, "|") + ">"
	}
	found := false
	err := h.Runner.Mutate(func(snap *state.Snapshot) {
		if _, ok := snap.Media[slot]; ok {
			delete(snap.Media, slot)
			found = true
		}
	})
	if err != nil {
		return fmt.Sprintf("Could not clear media: %v", err)
	}
	if !found {
		return fmt.Sprintf("No media set for %q.", slot)
	}
	return fmt.Sprintf("Cleared media for the %s event.", slot)
}

func (h *Handler) mediaStatus() string {
	var b strings.Builder
	b.WriteString("Media slots:\n")
	h.Runner.Inspect(func(snap *state.Snapshot) {
		for _, slot := range state.MediaSlots {
			if m := snap.Media[slot]; m != nil {
				fmt.Fprintf(&b, "• %s: %s\n", slot, m.Kind)
			} else {
				fmt.Fprintf(&b, "• %s: (default)\n", slot)
			}
		}
		if snap.Awaiting != "" {
			fmt.Fprintf(&b, "Awaiting media for: %s\n", snap.Awaiting)
		}
	})
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) debug() string {
	var b strings.Builder
	h.Runner.Inspect(func(snap *state.Snapshot) {
		fmt.Fprintf(&b, "Listings tracked: %d\n", len(snap.Listings))
		fmt.Fprintf(&b, "Sales deduped: %d\n", len(snap.Sales))
		fmt.Fprintf(&b, "Token trades deduped: %d\n", len(snap.TokenTrades))
		fmt.Fprintf(&b, "DEX trades deduped: %d\n", len(snap.DexTrades))

		names := make([]string, 0, len(snap.Dexes))
		for name := range snap.Dexes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ps := snap.Dexes[name]
			if ps.Resolved() {
				fmt.Fprintf(&b, "%s: pair %s, cursor %d\n", name, notify.ShortAddr(ps.Pair), ps.LastBlock)
			} else {
				fmt.Fprintf(&b, "%s: unresolved\n", name)
			}
		}
	})
	if h.Levels != nil {
		// Levels freshness is cache-internal; report what the cache knows.
		b.WriteString("Levels cache: attached\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) level(args string) string {
	id := strings.TrimSpace(args)
	if id == "" {
		return "Usage: /level <tokenId>"
	}
	if h.Levels == nil {
		return "Level data is not configured."
	}
	if lvl, ok := h.Levels.Level(id); ok {
		return fmt.Sprintf("Token #%s is level %d.", id, lvl)
	}
	return fmt.Sprintf("No level known for token #%s.", id)
}

func (h *Handler) rarity(args string) string {
	id := strings.TrimSpace(args)
	if id == "" {
		return "Usage: /rarity <tokenId>"
	}
	if h.Rarity == nil {
		return "Rarity data is not configured."
	}
	r := h.Rarity.Rarity(id)
	if r.Rank == nil && r.Continent == "" && r.Rewards == "" {
		return fmt.Sprintf("No rarity data for token #%s.", id)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Token #%s\n", id)
	if r.Rank != nil {
		fmt.Fprintf(&b, "Rank: %d\n", *r.Rank)
	}
	if r.Score != nil {
		fmt.Fprintf(&b, "Score: %s\n", notify.FormatCompact(*r.Score))
	}
	if r.Continent != "" {
		fmt.Fprintf(&b, "Continent: %s\n", r.Continent)
	}
	if r.Rewards != "" {
		fmt.Fprintf(&b, "Rewards: %s\n", r.Rewards)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) restricted(command string) bool {
	if adminCommands[command] {
		return true
	}
	_, isMediaCmd := mediaSlotCommands[command]
	return isMediaCmd
}

func (h *Handler) isAdmin(chatID int64) bool {
	return h.AdminChatID == 0 || chatID == h.AdminChatID
}

func (h *Handler) logger() *log.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return log.Default()
}
