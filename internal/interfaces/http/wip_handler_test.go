package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/wip-ledger/internal/application/analytics"
	"github.com/jhoicas/wip-ledger/internal/application/auth"
	"github.com/jhoicas/wip-ledger/internal/application/dto"
	"github.com/jhoicas/wip-ledger/internal/application/wip"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
	"github.com/jhoicas/wip-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/wip-ledger/internal/infrastructure/sqlite"
	apphttp "github.com/jhoicas/wip-ledger/internal/interfaces/http"
	"github.com/jhoicas/wip-ledger/pkg/logger"
)

// newAPI levanta el router completo sobre SQLite en memoria.
func newAPI(t *testing.T) *fiber.App {
	return newAPIWithRunner(t, nil)
}

// newAPIWithRunner como newAPI; wrap (si no es nil) envuelve el TxRunner del ledger.
func newAPIWithRunner(t *testing.T, wrap func(wip.TxRunner) wip.TxRunner) *fiber.App {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db))

	var runner wip.TxRunner = sqlite.NewTxRunner(db)
	if wrap != nil {
		runner = wrap(runner)
	}
	ledgerUC := wip.NewLedgerUseCase(
		runner,
		sqlite.NewStockLotRepository(db),
		sqlite.NewLedgerRepository(db),
		lock.NewLocal(),
		logger.Nop(),
	)
	authUC := auth.NewAuthUseCase(sqlite.NewUserRepository(db), testTokens).WithBcryptCost(bcrypt.MinCost)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:      authUC,
		LedgerUC:    ledgerUC,
		DashboardUC: analytics.NewDashboardUseCase(sqlite.NewAnalyticsRepository(db)),
		Tokens:      testTokens,
		ServiceName: "wip-ledger",
		Log:         logger.Nop(),
	})
	return app
}

// call envía body como JSON con el token del rol indicado (rol vacío: sin token).
func call(t *testing.T, app *fiber.App, method, path, role string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func addStock(t *testing.T, app *fiber.App, part, lot string, qty int64) dto.StockLotResponse {
	t.Helper()
	resp := call(t, app, http.MethodPost, "/api/wip/stock", "operator",
		dto.AddStockRequest{PartNumber: part, LotNumber: lot, Quantity: qty})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[dto.StockLotResponse](t, resp)
}

func TestWipAPI_AddStock_OperadorPorDefectoDelToken(t *testing.T) {
	app := newAPI(t)

	lot := addStock(t, app, " tl001 ", "lot1", 100)
	assert.Equal(t, "TL001", lot.PartNumber)
	assert.Equal(t, "LOT1", lot.LotNumber)
	assert.Equal(t, int64(100), lot.Quantity)
	assert.Equal(t, testUsername, lot.Operator)
	assert.Equal(t, entity.LotStatusAvailable, lot.Status)
	assert.Equal(t, entity.DefaultCustomer, lot.Customer)

	again := addStock(t, app, "TL001", "LOT1", 50)
	assert.Equal(t, lot.WipID, again.WipID, "la re-entrada suma sobre la misma fila")
	assert.Equal(t, int64(150), again.Quantity)
}

func TestWipAPI_AddStock_Validacion(t *testing.T) {
	app := newAPI(t)

	resp := call(t, app, http.MethodPost, "/api/wip/stock", "operator",
		map[string]any{"lotnumber": "LOT1", "quantity": 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "VALIDATION", body.Code)
	assert.Equal(t, "required", body.Details["partnumber"])

	resp = call(t, app, http.MethodPost, "/api/wip/stock", "operator",
		map[string]any{"partnumber": "TL001", "lotnumber": "LOT1", "quantity": -5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decode[dto.ErrorResponse](t, resp)
	assert.Contains(t, body.Details, "quantity")

	// solo espacios pasa el validador pero no la normalización
	resp = call(t, app, http.MethodPost, "/api/wip/stock", "operator",
		map[string]any{"partnumber": "   ", "lotnumber": "LOT1", "quantity": 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MISSING_IDENTIFIER", decode[dto.ErrorResponse](t, resp).Code)
}

func TestWipAPI_AddStock_RolQCBloqueado(t *testing.T) {
	app := newAPI(t)
	resp := call(t, app, http.MethodPost, "/api/wip/stock", "qc",
		dto.AddStockRequest{PartNumber: "TL001", LotNumber: "LOT1", Quantity: 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/wip/stock", "",
		dto.AddStockRequest{PartNumber: "TL001", LotNumber: "LOT1", Quantity: 1})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWipAPI_Transfer_TodoONada(t *testing.T) {
	app := newAPI(t)
	addStock(t, app, "TL001", "LOT1", 150)

	resp := call(t, app, http.MethodPost, "/api/wip/transfers", "qc",
		dto.TransferRequest{PartNumber: "TL001", LotNumber: "LOT1", Quantity: 200})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	assert.Equal(t, float64(150), body.Details["available"])
	assert.Equal(t, float64(200), body.Details["requested"])

	resp = call(t, app, http.MethodPost, "/api/wip/transfers", "qc",
		dto.TransferRequest{PartNumber: "TL001", LotNumber: "LOT1", Quantity: 150})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[dto.TransferResponse](t, resp)
	assert.Equal(t, entity.TransferFull, rec.ResultStatus)
	assert.Equal(t, int64(150), rec.QuantitySatisfied)
	assert.Equal(t, testUsername, rec.PIC)
	require.Len(t, rec.Takes, 1)
	assert.Equal(t, int64(0), rec.Takes[0].Remaining)

	resp = call(t, app, http.MethodPost, "/api/wip/transfers", "qc",
		dto.TransferRequest{PartNumber: "TL001", LotNumber: "LOT1", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "LOT_NOT_FOUND", decode[dto.ErrorResponse](t, resp).Code)
}

func TestWipAPI_Transfer_OperadorBloqueado(t *testing.T) {
	app := newAPI(t)
	resp := call(t, app, http.MethodPost, "/api/wip/transfers", "operator",
		dto.TransferRequest{PartNumber: "TL001", LotNumber: "LOT1", Quantity: 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWipAPI_EtiquetasYConsumoFIFO(t *testing.T) {
	app := newAPI(t)
	for _, l := range []dto.RegisterLabelRequest{
		{LabelID: "QR-1", PartNumber: "TL002", LotNumber: "LOTA", Quantity: 30},
		{LabelID: "QR-2", PartNumber: "TL002", LotNumber: "LOTB", Quantity: 20},
	} {
		resp := call(t, app, http.MethodPost, "/api/wip/labels", "operator", l)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := call(t, app, http.MethodPost, "/api/wip/labels", "operator",
		dto.RegisterLabelRequest{LabelID: "qr-1", PartNumber: "TL002", LotNumber: "LOTA", Quantity: 5})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", decode[dto.ErrorResponse](t, resp).Code)

	resp = call(t, app, http.MethodPost, "/api/wip/consumptions", "operator",
		dto.ConsumeRequest{PartNumber: "TL002", Quantity: 60, PIC: "line2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[dto.TransferResponse](t, resp)
	assert.Equal(t, entity.TransferPartial, rec.ResultStatus)
	assert.Equal(t, int64(50), rec.QuantitySatisfied)
	assert.Equal(t, int64(10), rec.Shortfall)
	assert.Equal(t, "line2", rec.PIC)
	require.Len(t, rec.Takes, 2)
	assert.Equal(t, "LOTA", rec.Takes[0].LotNumber)
	assert.Equal(t, "LOTB", rec.Takes[1].LotNumber)

	resp = call(t, app, http.MethodGet, "/api/wip/batches/"+rec.BatchID, "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[[]dto.LedgerEntryResponse](t, resp)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-30), entries[0].QuantityChange)
	assert.Equal(t, int64(-20), entries[1].QuantityChange)
}

func TestWipAPI_RecordOutput(t *testing.T) {
	app := newAPI(t)
	addStock(t, app, "RAW1", "R1", 100)

	resp := call(t, app, http.MethodPost, "/api/wip/outputs", "operator", dto.RecordOutputRequest{
		PartNumber: "TL003", LotNumber: "L1", GoodQty: 40, NGQty: 5, SourcePartNumber: "RAW1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[dto.OutputResponse](t, resp)
	require.NotNil(t, out.Lot)
	assert.Equal(t, int64(40), out.Lot.Quantity)
	require.NotNil(t, out.Consumption)
	assert.Equal(t, int64(45), out.Consumption.QuantitySatisfied)

	resp = call(t, app, http.MethodPost, "/api/wip/outputs", "operator", dto.RecordOutputRequest{
		PartNumber: "TL003", LotNumber: "L1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_QUANTITY", decode[dto.ErrorResponse](t, resp).Code)
}

// failingRunner falla la transacción número failOn y delega el resto.
type failingRunner struct {
	inner  wip.TxRunner
	failOn int32
	calls  atomic.Int32
}

func (r *failingRunner) Run(ctx context.Context, fn func(repository.StockLotRepository, repository.LedgerRepository) error) error {
	if r.calls.Add(1) == r.failOn {
		return errors.New("disco lleno")
	}
	return r.inner.Run(ctx, fn)
}

func TestWipAPI_RecordOutput_FalloEnConsumoInformaEntradaConfirmada(t *testing.T) {
	// 1: alta del origen, 2: entrada de la salida, 3: consumo FIFO (falla)
	app := newAPIWithRunner(t, func(inner wip.TxRunner) wip.TxRunner {
		return &failingRunner{inner: inner, failOn: 3}
	})
	addStock(t, app, "RAW1", "R1", 100)

	resp := call(t, app, http.MethodPost, "/api/wip/outputs", "operator", dto.RecordOutputRequest{
		PartNumber: "TL003", LotNumber: "L1", GoodQty: 40, NGQty: 5, SourcePartNumber: "RAW1",
	})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "STORAGE_ERROR", body.Code)
	committed, ok := body.Details["committed_lot"].(map[string]any)
	require.True(t, ok, "el error debe traer la entrada ya confirmada")
	assert.Equal(t, "TL003", committed["partnumber"])
	assert.Equal(t, float64(40), committed["quantity"])

	resp = call(t, app, http.MethodGet, "/api/wip/lots/TL003/L1", "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(40), decode[dto.LotSummaryResponse](t, resp).TotalAvailable)

	resp = call(t, app, http.MethodGet, "/api/wip/lots/RAW1/R1", "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(100), decode[dto.LotSummaryResponse](t, resp).TotalAvailable)
}

func TestWipAPI_CantidadesFueraDeRango(t *testing.T) {
	app := newAPI(t)

	tests := []struct {
		name  string
		path  string
		body  map[string]any
		field string
	}{
		{"stock", "/api/wip/stock", map[string]any{"partnumber": "TL001", "lotnumber": "L1", "quantity": int64(math.MaxInt64)}, "quantity"},
		{"etiqueta", "/api/wip/labels", map[string]any{"label_id": "Q1", "partnumber": "TL001", "lotnumber": "L1", "quantity": 1000000001}, "quantity"},
		{"consumo", "/api/wip/consumptions", map[string]any{"partnumber": "TL001", "quantity": 1000000001}, "quantity"},
		{"salida", "/api/wip/outputs", map[string]any{"partnumber": "TL001", "lotnumber": "L1", "good_qty": int64(math.MaxInt64), "ng_qty": 1}, "good_qty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, app, http.MethodPost, tt.path, "admin", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decode[dto.ErrorResponse](t, resp)
			assert.Equal(t, "VALIDATION", body.Code)
			assert.Equal(t, "lte", body.Details[tt.field])
		})
	}

	resp := call(t, app, http.MethodGet, "/api/wip/stock", "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[dto.StockListResponse](t, resp).Items)
}

func TestWipAPI_Consultas(t *testing.T) {
	app := newAPI(t)
	first := addStock(t, app, "TL001", "LOT1", 10)
	addStock(t, app, "TL001", "LOT2", 20)
	addStock(t, app, "TL009", "LOT1", 5)

	resp := call(t, app, http.MethodGet, "/api/wip/stock?partnumber=tl001&limit=1", "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.StockListResponse](t, resp)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 2, list.Page.Total)
	assert.Equal(t, 1, list.Page.Limit)

	resp = call(t, app, http.MethodGet, "/api/wip/stock?status=borrado", "qc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/api/wip/stock/"+first.WipID, "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(10), decode[dto.StockLotResponse](t, resp).Quantity)

	resp = call(t, app, http.MethodGet, "/api/wip/stock/no-existe", "qc", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/api/wip/lots/TL001/LOT1", "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[dto.LotSummaryResponse](t, resp)
	assert.Equal(t, int64(10), summary.TotalAvailable)
	assert.Len(t, summary.Rows, 1)

	resp = call(t, app, http.MethodGet, "/api/wip/ledger/LOT1?limit=10", "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]dto.LedgerEntryResponse](t, resp)
	assert.Len(t, history, 2)
	for _, e := range history {
		assert.Equal(t, entity.TxAddFromOutput, e.TransactionType)
		assert.Positive(t, e.QuantityChange)
	}
}

func TestWipAPI_Reportes(t *testing.T) {
	app := newAPI(t)
	addStock(t, app, "TL001", "LOT1", 10)

	resp := call(t, app, http.MethodGet, "/api/wip/stock/export.xlsx", "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	resp = call(t, app, http.MethodGet, "/api/wip/ledger/LOT1/report.pdf", "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

func TestWipAPI_Health(t *testing.T) {
	app := newAPI(t)
	resp := call(t, app, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[apphttp.HealthResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, int64(0), body.AuditFailures)
}

func TestAuthAPI_RegistroSoloAdminYLogin(t *testing.T) {
	app := newAPI(t)
	reg := dto.RegisterRequest{Username: "Inspector1", Password: "secreto123", Role: "qc"}

	resp := call(t, app, http.MethodPost, "/api/auth/register", "operator", reg)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/auth/register", "admin", reg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := decode[dto.UserResponse](t, resp)
	assert.Equal(t, "inspector1", user.Username)
	assert.Equal(t, "qc", user.Role)

	resp = call(t, app, http.MethodPost, "/api/auth/register", "admin", reg)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Username: "inspector1", Password: "mala-clave"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Username: "inspector1", Password: "secreto123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[dto.LoginResponse](t, resp)
	require.NotEmpty(t, login.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/wip/stock", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	got, err := app.Test(req, -1)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)
}

func TestWipAPI_Dashboard(t *testing.T) {
	app := newAPI(t)
	addStock(t, app, "TL001", "LOT1", 10)
	addStock(t, app, "TL001", "LOT2", 5)

	resp := call(t, app, http.MethodGet, "/api/wip/dashboard", "qc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.DashboardSummaryDTO](t, resp)
	assert.Equal(t, int64(15), out.TotalAvailable)
	require.Len(t, out.TopParts, 1)
	assert.Equal(t, 2, out.TopParts[0].Lots)
	require.Len(t, out.Month, 1)
	assert.Equal(t, entity.TxAddFromOutput, out.Month[0].TransactionType)
	assert.Equal(t, int64(15), out.Month[0].Quantity)
}

func TestErrorHandler_RutaInexistenteYRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info")
	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(log)})
	app.Use(requestid.New())
	app.Use(apphttp.RequestLogger(log))
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("fallo interno") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/no-existe", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, resp).Code)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "INTERNAL", body.Code)
	assert.NotContains(t, body.Message, "fallo interno")

	assert.Contains(t, buf.String(), `"status":404`)
	assert.Contains(t, buf.String(), `"request_id"`)
}
