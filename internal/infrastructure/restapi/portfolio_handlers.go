package restapi

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 10000
)

// APIResponse is the envelope of every API response.
type APIResponse struct {
	Data          any    `json:"data,omitempty"`
	StatusMessage string `json:"status_message"`
}

// TokenView is a ledger entry with its derived values.
type TokenView struct {
	Address   string                     `json:"address"`
	Name      string                     `json:"name"`
	Symbol    string                     `json:"symbol"`
	Chain     string                     `json:"chain"`
	Balance   decimal.Decimal            `json:"balance"`
	Balances  map[string]decimal.Decimal `json:"balances"`
	Price     decimal.Decimal            `json:"price"`
	Value     decimal.Decimal            `json:"value"`
	RealValue decimal.Decimal            `json:"real_value"`
	Liquidity decimal.Decimal            `json:"liquidity"`
	MarketCap decimal.Decimal            `json:"market_cap"`
	Link      string                     `json:"link,omitempty"`
	Dex       string                     `json:"dex,omitempty"`
}

// PortfolioView is the latest ledger.
type PortfolioView struct {
	TakenAt    time.Time       `json:"taken_at"`
	Total      decimal.Decimal `json:"total"`
	Unresolved []string        `json:"unresolved"`
	Tokens     []TokenView     `json:"tokens"`
}

// PortfolioHandler обрабатывает HTTP запросы, связанные с портфелем.
type PortfolioHandler struct {
	tracker port.TrackerService
	history port.HistoryStore
	logger  port.Logger
}

// NewPortfolioHandler создает новый экземпляр PortfolioHandler.
func NewPortfolioHandler(tracker port.TrackerService, history port.HistoryStore, logger port.Logger) *PortfolioHandler {
	return &PortfolioHandler{tracker: tracker, history: history, logger: logger}
}

// lastResult writes 503 and returns nil until the first cycle has completed.
func (h *PortfolioHandler) lastResult(c *gin.Context) *entity.CycleResult {
	result := h.tracker.LastResult()
	if result == nil || result.Snapshot == nil || result.Report == nil {
		c.JSON(http.StatusServiceUnavailable, APIResponse{StatusMessage: "No completed cycle yet."})
		return nil
	}
	return result
}

// GetPortfolioHandler returns the latest ledger ordered by real value.
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	result := h.lastResult(c)
	if result == nil {
		return
	}

	tokens := make([]TokenView, 0, len(result.Snapshot.Tokens))
	for _, info := range result.Snapshot.Tokens {
		tokens = append(tokens, toTokenView(info))
	}
	sort.Slice(tokens, func(i, j int) bool {
		if !tokens[i].RealValue.Equal(tokens[j].RealValue) {
			return tokens[i].RealValue.GreaterThan(tokens[j].RealValue)
		}
		return tokens[i].Address < tokens[j].Address
	})

	unresolved := result.Unresolved
	if unresolved == nil {
		unresolved = []string{}
	}
	c.JSON(http.StatusOK, APIResponse{
		Data: PortfolioView{
			TakenAt:    result.Snapshot.TakenAt,
			Total:      result.Report.Total,
			Unresolved: unresolved,
			Tokens:     tokens,
		},
		StatusMessage: "Portfolio retrieved successfully.",
	})
}

// GetChainsHandler returns the per-chain subtotals of the latest report.
func (h *PortfolioHandler) GetChainsHandler(c *gin.Context) {
	result := h.lastResult(c)
	if result == nil {
		return
	}
	chains := result.Report.Chains
	if chains == nil {
		chains = []entity.ChainSubtotal{}
	}
	c.JSON(http.StatusOK, APIResponse{Data: chains, StatusMessage: "Chains retrieved successfully."})
}

// GetReportHandler returns the latest report.
func (h *PortfolioHandler) GetReportHandler(c *gin.Context) {
	result := h.lastResult(c)
	if result == nil {
		return
	}
	c.JSON(http.StatusOK, APIResponse{Data: result.Report, StatusMessage: "Report retrieved successfully."})
}

// GetHistoryHandler returns the most recent history points. ?limit=N, default 100.
func (h *PortfolioHandler) GetHistoryHandler(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, APIResponse{StatusMessage: "limit must be a positive integer."})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	points, err := h.history.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to read portfolio history", "error", err)
		c.JSON(http.StatusInternalServerError, APIResponse{StatusMessage: "Failed to read portfolio history."})
		return
	}
	if points == nil {
		points = []entity.HistoryPoint{}
	}
	c.JSON(http.StatusOK, APIResponse{Data: points, StatusMessage: "History retrieved successfully."})
}

func toTokenView(info *entity.TokenInfo) TokenView {
	balances := make(map[string]decimal.Decimal, len(info.Balances))
	for wallet, amount := range info.Balances {
		balances[wallet] = amount
	}
	return TokenView{
		Address:   info.Address,
		Name:      info.Name,
		Symbol:    info.Symbol,
		Chain:     info.Chain,
		Balance:   info.Balance(),
		Balances:  balances,
		Price:     info.Price,
		Value:     info.Value(),
		RealValue: info.RealValue(),
		Liquidity: info.Liquidity,
		MarketCap: info.MarketCap,
		Link:      info.Link,
		Dex:       info.Dex,
	}
}
