package catalog_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/sequence"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const storeID = "tienda-1"

type recordingSink struct {
	mu     sync.Mutex
	events []entity.AuditEvent
}

func (s *recordingSink) Record(e entity.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func newUseCase(t *testing.T) (*catalog.UseCase, *memory.Store, *recordingSink) {
	t.Helper()
	store := memory.NewStore()
	store.SeedStore(storeID)
	store.SeedCategory(entity.Category{ID: "cat-groc", Name: "Abarrotes", Prefix: "GROC"})
	sink := &recordingSink{}
	log := logger.Nop()
	uc := catalog.NewUseCase(catalog.Deps{
		TxRunner:     store,
		Allocator:    sequence.NewAllocator(store, log),
		CategoryRepo: store.Categories(),
		ProductRepo:  store.Products(),
		UserRepo:     store.Users(),
		StoreRepo:    store.Stores(),
		Sink:         sink,
		Logger:       log,
		BcryptCost:   bcrypt.MinCost,
	})
	return uc, store, sink
}

func productInput(name string) catalog.CreateProductInput {
	return catalog.CreateProductInput{StoreID: storeID, CategoryID: "cat-groc", Name: name, CreatedBy: "dueno-1"}
}

// ──────────────────────────────────────────────────────────────────────────────
// Productos
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateProduct_GeneraSKU(t *testing.T) {
	uc, _, sink := newUseCase(t)
	ctx := context.Background()

	p, err := uc.CreateProduct(ctx, productInput("Parle-G Biscuit"))
	require.NoError(t, err)
	assert.Equal(t, "GROC-PGB71-001", p.SKU)
	assert.Equal(t, "unit", p.UnitMeasure)

	p2, err := uc.CreateProduct(ctx, productInput("Parle-G Biscuit"))
	require.NoError(t, err)
	assert.Equal(t, "GROC-PGB71-002", p2.SKU)

	require.Len(t, sink.events, 2)
	assert.Equal(t, entity.AuditActionProductCreated, sink.events[0].Action)
}

func TestCreateProduct_ReintentaUnaVezAnteColision(t *testing.T) {
	uc, store, _ := newUseCase(t)
	// SKU ya tomado fuera del contador (carga manual)
	store.SeedProduct(entity.Product{ID: "legacy-1", StoreID: storeID, SKU: "GROC-PGB71-001"})

	p, err := uc.CreateProduct(context.Background(), productInput("Parle-G Biscuit"))
	require.NoError(t, err)
	assert.Equal(t, "GROC-PGB71-002", p.SKU)
}

func TestCreateProduct_SegundaColisionEsConflict(t *testing.T) {
	uc, store, _ := newUseCase(t)
	store.SeedProduct(entity.Product{ID: "legacy-1", StoreID: storeID, SKU: "GROC-PGB71-001"})
	store.SeedProduct(entity.Product{ID: "legacy-2", StoreID: storeID, SKU: "GROC-PGB71-002"})

	_, err := uc.CreateProduct(context.Background(), productInput("Parle-G Biscuit"))
	require.ErrorIs(t, err, domain.ErrConflict)

	v, err := store.Sequences().Current(context.Background(), "GROC-PGB71-")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v, "la unidad revertida no consume valores")
}

func TestCreateProduct_SKUPropioDuplicado(t *testing.T) {
	uc, _, _ := newUseCase(t)
	in := productInput("Arroz Diana")
	in.SKU = "ARROZ-1"

	p, err := uc.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "ARROZ-1", p.SKU)

	_, err = uc.CreateProduct(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateProduct_CategoriaOTiendaInexistente(t *testing.T) {
	uc, _, _ := newUseCase(t)
	in := productInput("Arroz")
	in.CategoryID = "nada"
	_, err := uc.CreateProduct(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in = productInput("Arroz")
	in.StoreID = "nada"
	_, err = uc.CreateProduct(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.CreateProduct(context.Background(), productInput("  "))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetProduct_RestringidoALaTienda(t *testing.T) {
	uc, _, _ := newUseCase(t)
	p, err := uc.CreateProduct(context.Background(), productInput("Arroz"))
	require.NoError(t, err)

	got, err := uc.GetProduct(context.Background(), storeID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.SKU, got.SKU)

	_, err = uc.GetProduct(context.Background(), "otra", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Usuarios
// ──────────────────────────────────────────────────────────────────────────────

func userInput(email, role string) catalog.CreateUserInput {
	return catalog.CreateUserInput{
		StoreID: storeID, Email: email, Password: "clave-segura", FirstName: "Ana", Role: role, CreatedBy: "admin-1",
	}
}

func TestCreateUser_CodigoPorRol(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	owner, err := uc.CreateUser(ctx, userInput("Dueno@Tienda.co", entity.RoleShopOwner))
	require.NoError(t, err)
	assert.Equal(t, "SISO001", owner.UserCode)
	assert.Equal(t, "dueno@tienda.co", owner.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte("clave-segura")))

	e1, err := uc.CreateUser(ctx, userInput("e1@tienda.co", entity.RoleEmployee))
	require.NoError(t, err)
	e2, err := uc.CreateUser(ctx, userInput("e2@tienda.co", entity.RoleEmployee))
	require.NoError(t, err)
	assert.Equal(t, "SIE001", e1.UserCode)
	assert.Equal(t, "SIE002", e2.UserCode)

	admin := userInput("root@plataforma.co", entity.RoleSuperAdmin)
	admin.StoreID = ""
	a, err := uc.CreateUser(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, "SISA001", a.UserCode)
}

func TestCreateUser_EmailDuplicadoEsConflict(t *testing.T) {
	uc, _, _ := newUseCase(t)
	_, err := uc.CreateUser(context.Background(), userInput("a@tienda.co", entity.RoleEmployee))
	require.NoError(t, err)

	_, err = uc.CreateUser(context.Background(), userInput("A@TIENDA.CO", entity.RoleEmployee))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateUser_Validaciones(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	bad := userInput("x@tienda.co", "cajero")
	_, err := uc.CreateUser(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "rol desconocido")

	_, err = uc.CreateUser(ctx, userInput("no-es-email", entity.RoleEmployee))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	short := userInput("y@tienda.co", entity.RoleEmployee)
	short.Password = "corta"
	_, err = uc.CreateUser(ctx, short)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	noStore := userInput("z@tienda.co", entity.RoleEmployee)
	noStore.StoreID = ""
	_, err = uc.CreateUser(ctx, noStore)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ghost := userInput("w@tienda.co", entity.RoleEmployee)
	ghost.StoreID = "nada"
	_, err = uc.CreateUser(ctx, ghost)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
