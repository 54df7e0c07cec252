// Package gateway dispatches text commands to the nation managers and
// renders plain-text replies. It mutates no state of its own and holds no
// cache; every command resolves through a single manager call.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/TinyAII/dqcq/internal/services/nations/diplomacy"
	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/economy"
	"github.com/TinyAII/dqcq/internal/services/nations/membership"
	"github.com/TinyAII/dqcq/internal/services/nations/profile"
	"github.com/TinyAII/dqcq/internal/services/nations/storage"
	"github.com/TinyAII/dqcq/internal/services/nations/war"
)

const (
	// commandRate is the sustained per-caller command budget.
	commandRate = rate.Limit(1)
	// commandBurst allows short command bursts before throttling.
	commandBurst = 5

	throttledReply = "Slow down. Try again in a moment."
)

// Managers groups the manager dependencies the gateway dispatches to.
type Managers struct {
	Membership *membership.Manager
	Economy    *economy.Manager
	War        *war.Manager
	Diplomacy  *diplomacy.Manager
	Profile    *profile.Manager
}

// A caller's limiter is dropped once it has been idle past the TTL and the
// tracked-caller count is above the cap.
const (
	maxTrackedCallers = 4096
	limiterIdleTTL    = 10 * time.Minute
)

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Gateway translates text commands into manager calls.
type Gateway struct {
	managers  Managers
	tracer    trace.Tracer
	rateLimit rate.Limit
	rateBurst int

	mu       sync.Mutex
	limiters map[string]*callerLimiter
}

// New creates a gateway over the provided managers.
func New(managers Managers) *Gateway {
	return &Gateway{
		managers:  managers,
		tracer:    otel.Tracer("nations/gateway"),
		rateLimit: commandRate,
		rateBurst: commandBurst,
		limiters:  make(map[string]*callerLimiter),
	}
}

// WithRateLimit overrides the per-caller command budget.
func (g *Gateway) WithRateLimit(limit rate.Limit, burst int) *Gateway {
	g.rateLimit = limit
	g.rateBurst = burst
	return g
}

// Handle dispatches one command for a resolved caller identity and returns
// the rendered reply. The identity is stable; displayName is presentation
// only.
func (g *Gateway) Handle(ctx context.Context, identity, displayName, text string) string {
	if g == nil {
		return "The nation service is unavailable."
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "A caller identity is required."
	}

	keyword, args := splitCommand(text)
	if keyword == "" {
		return helpText
	}

	ctx, span := g.tracer.Start(ctx, "gateway.Handle",
		trace.WithAttributes(attribute.String("command.keyword", keyword)))
	defer span.End()

	if !g.limiter(identity).Allow() {
		span.SetAttributes(attribute.String("command.outcome", "throttled"))
		return throttledReply
	}

	reply, err := g.dispatch(ctx, identity, displayName, keyword, args)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("command.outcome", "error"))
		return renderError(err)
	}
	span.SetAttributes(attribute.String("command.outcome", "ok"))
	return reply
}

func (g *Gateway) dispatch(ctx context.Context, identity, displayName, keyword string, args []string) (string, error) {
	switch keyword {
	case "help":
		return helpText, nil

	case "found":
		if len(args) < 1 {
			return "", usageError("found <nation-name>")
		}
		nation, err := g.managers.Membership.CreateNation(ctx, identity, displayName, strings.Join(args, " "))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Nation %s founded. You are its leader.", nation.Name), nil

	case "join":
		if len(args) < 1 {
			return "", usageError("join <nation-name>")
		}
		nation, err := g.managers.Membership.JoinNation(ctx, identity, displayName, strings.Join(args, " "))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("You joined %s.", nation.Name), nil

	case "leave":
		result, err := g.managers.Membership.LeaveNation(ctx, identity)
		if err != nil {
			return "", err
		}
		if result.Dissolved {
			return fmt.Sprintf("You left %s. With no members remaining, the nation is dissolved.", result.NationName), nil
		}
		return fmt.Sprintf("You left %s.", result.NationName), nil

	case "dissolve":
		if err := g.managers.Membership.DissolveNation(ctx, identity); err != nil {
			return "", err
		}
		return "Your nation has been dissolved.", nil

	case "promote":
		if len(args) < 2 {
			return "", usageError("promote <identity> <title>")
		}
		if err := g.managers.Membership.Promote(ctx, identity, args[0], strings.Join(args[1:], " ")); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is now %s.", args[0], strings.Join(args[1:], " ")), nil

	case "demote":
		if len(args) < 1 {
			return "", usageError("demote <identity>")
		}
		if err := g.managers.Membership.Demote(ctx, identity, args[0]); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s holds no positions now.", args[0]), nil

	case "members":
		members, err := g.managers.Membership.ListMembers(ctx, identity)
		if err != nil {
			return "", err
		}
		return renderMembers(members), nil

	case "status":
		nation, err := g.managers.Membership.Status(ctx, identity)
		if err != nil {
			return "", err
		}
		return renderStatus(nation), nil

	case "treasury":
		balances, err := g.managers.Economy.ViewTreasury(ctx, identity)
		if err != nil {
			return "", err
		}
		return "Treasury: " + renderBalances(balances), nil

	case "inventory":
		balances, err := g.managers.Economy.ViewInventory(ctx, identity)
		if err != nil {
			return "", err
		}
		return "Inventory: " + renderBalances(balances), nil

	case "war":
		if len(args) < 1 {
			return "", usageError("war <nation-name>")
		}
		if _, err := g.managers.War.DeclareWar(ctx, identity, strings.Join(args, " ")); err != nil {
			return "", err
		}
		return fmt.Sprintf("War declared on %s.", strings.Join(args, " ")), nil

	case "endwar":
		if len(args) < 1 {
			return "", usageError("endwar <nation-name>")
		}
		if err := g.managers.War.EndWar(ctx, identity, strings.Join(args, " ")); err != nil {
			return "", err
		}
		return fmt.Sprintf("The war against %s is over.", strings.Join(args, " ")), nil

	case "wars":
		wars, err := g.managers.War.ListActiveWars(ctx, identity)
		if err != nil {
			return "", err
		}
		return renderWars("Active wars", wars), nil

	case "history":
		wars, err := g.managers.War.ListWarHistory(ctx, identity, 0)
		if err != nil {
			return "", err
		}
		return renderWars("War history", wars), nil

	case "ally":
		if len(args) < 1 {
			return "", usageError("ally <nation-name> [<amount> <resource>]")
		}
		name, gift, err := parseAllyArgs(args)
		if err != nil {
			return "", err
		}
		if _, err := g.managers.Diplomacy.SendRequest(ctx, identity, name, gift); err != nil {
			return "", err
		}
		if gift.IsZero() {
			return fmt.Sprintf("Alliance request sent to %s.", name), nil
		}
		return fmt.Sprintf("Alliance request sent to %s with a gift of %d %s.", name, gift.Amount, gift.Kind), nil

	case "accept", "reject":
		if len(args) < 1 {
			return "", usageError(keyword + " <nation-name>")
		}
		name := strings.Join(args, " ")
		accept := keyword == "accept"
		if _, err := g.managers.Diplomacy.RespondRequest(ctx, identity, name, accept); err != nil {
			return "", err
		}
		if accept {
			return fmt.Sprintf("Alliance with %s accepted.", name), nil
		}
		return fmt.Sprintf("Request from %s rejected.", name), nil

	case "requests":
		pending, err := g.managers.Diplomacy.ListPendingRequests(ctx, identity)
		if err != nil {
			return "", err
		}
		return renderRequests(pending), nil

	case "relations":
		relations, err := g.managers.Diplomacy.ListRelations(ctx, identity)
		if err != nil {
			return "", err
		}
		return renderRelations(relations), nil

	case "break":
		if len(args) < 1 {
			return "", usageError("break <nation-name>")
		}
		name := strings.Join(args, " ")
		if err := g.managers.Diplomacy.BreakRelation(ctx, identity, name); err != nil {
			return "", err
		}
		return fmt.Sprintf("Relation with %s broken.", name), nil

	case "profile":
		view, err := g.managers.Profile.Profile(ctx, identity)
		if err != nil {
			return "", err
		}
		return renderProfile(view), nil

	case "checkin":
		view, err := g.managers.Profile.CheckIn(ctx, identity)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Checked in. Inventory: %s (day %d).", renderBalances(view.Balances), view.CheckInCount), nil
	}

	return fmt.Sprintf("Unknown command %q. Send help for the command list.", keyword), nil
}

func (g *Gateway) limiter(identity string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	entry, ok := g.limiters[identity]
	if !ok {
		if len(g.limiters) >= maxTrackedCallers {
			g.evictIdleLocked(now)
		}
		entry = &callerLimiter{limiter: rate.NewLimiter(g.rateLimit, g.rateBurst)}
		g.limiters[identity] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evictIdleLocked drops limiters idle past the TTL. When every caller is
// live the map grows past the cap rather than dropping active state.
func (g *Gateway) evictIdleLocked(now time.Time) {
	for identity, entry := range g.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(g.limiters, identity)
		}
	}
}

func splitCommand(text string) (string, []string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", nil
	}
	keyword := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	return keyword, fields[1:]
}

// parseAllyArgs splits "ally" arguments into a nation name and an optional
// trailing "<amount> <resource>" gift.
func parseAllyArgs(args []string) (string, domain.Gift, error) {
	if len(args) >= 3 {
		amount, amountErr := strconv.ParseInt(args[len(args)-2], 10, 64)
		kind, kindErr := domain.ParseResource(args[len(args)-1])
		if amountErr == nil && kindErr == nil {
			if amount <= 0 {
				return "", domain.Gift{}, usageError("ally <nation-name> [<amount> <resource>]")
			}
			name := strings.Join(args[:len(args)-2], " ")
			return name, domain.Gift{Kind: kind, Amount: amount}, nil
		}
	}
	return strings.Join(args, " "), domain.Gift{}, nil
}

type usageErr string

func usageError(usage string) error { return usageErr(usage) }

func (e usageErr) Error() string { return "usage: " + string(e) }

func renderError(err error) string {
	var cooldownErr *domain.CooldownError
	var usage usageErr
	switch {
	case errors.As(err, &usage):
		return usage.Error()
	case errors.As(err, &cooldownErr):
		return fmt.Sprintf("Your nation must wait %s before declaring war again.", cooldownErr.Remaining.Truncate(time.Second))
	case errors.Is(err, domain.ErrNotMember):
		return "You are not a member of any nation."
	case errors.Is(err, domain.ErrAlreadyMember):
		return "You already belong to a nation. Leave it first."
	case errors.Is(err, domain.ErrNotFounder):
		return "Only the nation's leader may do that."
	case errors.Is(err, domain.ErrInvalidName):
		return "That nation name cannot be used."
	case errors.Is(err, domain.ErrNameTaken):
		return "That nation name is already taken."
	case errors.Is(err, domain.ErrTargetNotFound):
		return "No nation by that name exists."
	case errors.Is(err, domain.ErrTargetNotMember):
		return "That player is not a member of your nation."
	case errors.Is(err, domain.ErrSelfTarget):
		return "You cannot target your own nation."
	case errors.Is(err, domain.ErrAlreadyAtWar):
		return "An active war already exists between your nations."
	case errors.Is(err, domain.ErrNoActiveWar):
		return "Your nation has no active war it declared against that nation."
	case errors.Is(err, domain.ErrPendingRequestExists):
		return "A request to that nation is already pending."
	case errors.Is(err, domain.ErrNoPendingRequest):
		return "There is no pending request from that nation."
	case errors.Is(err, domain.ErrInsufficientGift):
		return "Your treasury cannot cover that gift."
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Insufficient balance."
	case errors.Is(err, domain.ErrNoRelation):
		return "There is no relation with that nation."
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		return "You already checked in today."
	case errors.Is(err, domain.ErrReservedTitle):
		return "Leader is a derived title and cannot be assigned."
	case errors.Is(err, domain.ErrEmptyTitle):
		return "A position title is required."
	case errors.Is(err, domain.ErrUnknownResource):
		return "Unknown resource. Use gold, silver, or jade."
	case errors.Is(err, storage.ErrUnavailable):
		return "The nation service is briefly unavailable. Try again."
	}
	return "That command could not be completed."
}

func renderBalances(b domain.Balances) string {
	return fmt.Sprintf("%d gold, %d silver, %d jade", b.Gold, b.Silver, b.Jade)
}

func renderStatus(nation domain.Nation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s — %d member(s), founded %s.",
		nation.Name, nation.MemberCount, nation.CreatedAt.Format(time.DateOnly))
	if !nation.LastWarDeclared.IsZero() {
		fmt.Fprintf(&sb, " Last war declared %s.", nation.LastWarDeclared.Format(time.DateTime))
	}
	return sb.String()
}

func renderMembers(members []membership.MemberView) string {
	if len(members) == 0 {
		return "No members."
	}
	lines := make([]string, 0, len(members))
	for _, member := range members {
		lines = append(lines, fmt.Sprintf("%s (%s)", member.DisplayName, strings.Join(member.Titles, ", ")))
	}
	return "Members:\n" + strings.Join(lines, "\n")
}

func renderWars(title string, wars []war.View) string {
	if len(wars) == 0 {
		return title + ": none."
	}
	lines := make([]string, 0, len(wars))
	for _, w := range wars {
		attacker := w.AttackerName
		if attacker == "" {
			attacker = w.War.AttackerID
		}
		defender := w.DefenderName
		if defender == "" {
			defender = w.War.DefenderID
		}
		line := fmt.Sprintf("%s attacked %s on %s (%s)",
			attacker, defender, w.War.DeclaredAt.Format(time.DateTime), w.War.Status)
		lines = append(lines, line)
	}
	return title + ":\n" + strings.Join(lines, "\n")
}

func renderRequests(pending []diplomacy.PendingRequest) string {
	if len(pending) == 0 {
		return "No pending requests."
	}
	lines := make([]string, 0, len(pending))
	for _, entry := range pending {
		line := fmt.Sprintf("From %s", entry.FromName)
		if !entry.Request.Gift.IsZero() {
			line += fmt.Sprintf(" with a gift of %d %s", entry.Request.Gift.Amount, entry.Request.Gift.Kind)
		}
		lines = append(lines, line)
	}
	return "Pending requests:\n" + strings.Join(lines, "\n")
}

func renderRelations(relations []diplomacy.RelationView) string {
	if len(relations) == 0 {
		return "No relations."
	}
	lines := make([]string, 0, len(relations))
	for _, relation := range relations {
		lines = append(lines, fmt.Sprintf("%s (%s)", relation.OtherName, relation.Kind))
	}
	return "Relations:\n" + strings.Join(lines, "\n")
}

func renderProfile(view profile.View) string {
	return fmt.Sprintf("%s — joined %s, %d check-in(s). Inventory: %s",
		view.DisplayName, view.JoinedAt.Format(time.DateOnly), view.CheckInCount, renderBalances(view.Balances))
}

const helpText = `Commands:
found <name>          found a nation
join <name>           join a nation
leave                 leave your nation
dissolve              dissolve your nation (leader only)
promote <id> <title>  grant a position (leader only)
demote <id>           clear a member's positions (leader only)
members               list your nation's members
status                show your nation's summary
treasury              show the treasury (leader only)
inventory             show your inventory
war <name>            declare war (leader only)
endwar <name>         end a war you declared (leader only)
wars                  list active wars
history               list recent wars
ally <name> [n res]   send an alliance request, optional gift
accept <name>         accept a pending request (leader only)
reject <name>         reject a pending request (leader only)
requests              list pending requests (leader only)
relations             list relations
break <name>          break a relation (leader only)
profile               show your profile
checkin               claim the daily reward`
