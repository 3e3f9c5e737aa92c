package catalog

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/stock-ledger/internal/application/audit"
	"github.com/jhoicas/stock-ledger/internal/application/sequence"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/identifier"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// MinPasswordLength largo mínimo de contraseña.
const MinPasswordLength = 8

// Deps dependencias del caso de uso de catálogo.
type Deps struct {
	TxRunner     TxRunner
	Allocator    *sequence.Allocator
	CategoryRepo repository.CategoryRepository
	ProductRepo  repository.ProductRepository
	UserRepo     repository.UserRepository
	StoreRepo    repository.StoreRepository
	Sink         audit.Sink
	Logger       *logger.Logger
	BcryptCost   int // 0 = bcrypt.DefaultCost
}

// UseCase altas de productos (SKU generado) y usuarios (código por rol).
type UseCase struct {
	txRunner     TxRunner
	allocator    *sequence.Allocator
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	userRepo     repository.UserRepository
	storeRepo    repository.StoreRepository
	sink         audit.Sink
	log          *logger.Logger
	bcryptCost   int
	now          func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(d Deps) *UseCase {
	cost := d.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UseCase{
		txRunner:     d.TxRunner,
		allocator:    d.Allocator,
		categoryRepo: d.CategoryRepo,
		productRepo:  d.ProductRepo,
		userRepo:     d.UserRepo,
		storeRepo:    d.StoreRepo,
		sink:         d.Sink,
		log:          d.Logger.Component("catalog"),
		bcryptCost:   cost,
		now:          time.Now,
	}
}

// CreateProductInput datos de alta de producto. SKU vacío = se genera.
type CreateProductInput struct {
	StoreID     string
	CategoryID  string
	Name        string
	Description string
	UnitMeasure string
	SKU         string
	CreatedBy   string
}

// CreateProduct da de alta el producto. Sin SKU del cliente, lo genera como
// CAT-ACRCS-NNN en la misma tx del insert; ante colisión reintenta una vez con el siguiente valor.
func (uc *UseCase) CreateProduct(ctx context.Context, in CreateProductInput) (*entity.Product, error) {
	name := strings.TrimSpace(in.Name)
	if in.StoreID == "" || in.CategoryID == "" || name == "" {
		return nil, domain.Invalid("store_id, category_id y name son obligatorios")
	}
	ok, err := uc.storeRepo.Exists(ctx, in.StoreID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NotFound("store", in.StoreID)
	}
	category, err := uc.categoryRepo.GetByID(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, domain.NotFound("category", in.CategoryID)
	}

	now := uc.now().UTC()
	unit := strings.TrimSpace(in.UnitMeasure)
	if unit == "" {
		unit = "unit"
	}
	p := &entity.Product{
		ID:          uuid.New().String(),
		StoreID:     in.StoreID,
		CategoryID:  in.CategoryID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		UnitMeasure: unit,
		SKU:         strings.TrimSpace(in.SKU),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	prefix := identifier.SKUPrefix(category.Prefix, name)

	err = uc.txRunner.RunCatalog(ctx, func(seqRepo repository.SequenceRepository, productRepo repository.ProductRepository, _ repository.UserRepository) error {
		if p.SKU != "" {
			if err := productRepo.Create(ctx, p); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					return domain.Conflict("el SKU '%s' ya existe en la tienda", p.SKU)
				}
				return err
			}
			return nil
		}
		for attempt := 0; attempt < 2; attempt++ {
			sku, err := uc.allocator.NextInTx(ctx, seqRepo, prefix)
			if err != nil {
				return err
			}
			p.SKU = sku
			err = productRepo.Create(ctx, p)
			if err == nil {
				return nil
			}
			if !errors.Is(err, domain.ErrDuplicate) {
				return err
			}
			uc.log.Warn().Str("sku", sku).Int("attempt", attempt+1).Msg("SKU generado en conflicto, se reintenta")
		}
		return domain.Conflict("no se pudo generar un SKU único para el prefijo '%s'", prefix)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("product_id", p.ID).Str("sku", p.SKU).Str("store_id", p.StoreID).Msg("producto creado")
	uc.sink.Record(entity.AuditEvent{
		Action:     entity.AuditActionProductCreated,
		EntityType: "product",
		EntityID:   p.ID,
		ActorID:    in.CreatedBy,
		StoreID:    p.StoreID,
		After: map[string]any{
			"id":           p.ID,
			"store_id":     p.StoreID,
			"category_id":  p.CategoryID,
			"name":         p.Name,
			"sku":          p.SKU,
			"unit_measure": p.UnitMeasure,
		},
		Metadata: map[string]any{"source": "catalog"},
	})
	return p, nil
}

// GetProduct lectura por ID restringida a la tienda.
func (uc *UseCase) GetProduct(ctx context.Context, storeID, id string) (*entity.Product, error) {
	p, err := uc.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.StoreID != storeID {
		return nil, domain.NotFound("product", id)
	}
	return p, nil
}

// CreateUserInput datos de alta de usuario.
type CreateUserInput struct {
	StoreID   string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	CreatedBy string
}

// CreateUser da de alta el usuario con código legible según el rol (SISO001, SIE042, SISA003).
func (uc *UseCase) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	prefix, ok := entity.UserCodePrefixes[in.Role]
	if !ok {
		return nil, domain.Invalid("rol desconocido '%s'", in.Role)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, domain.Invalid("email inválido")
	}
	email := strings.ToLower(addr.Address)
	if len(in.Password) < MinPasswordLength {
		return nil, domain.Invalid("la contraseña debe tener al menos %d caracteres", MinPasswordLength)
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, domain.Invalid("first_name es obligatorio")
	}
	if in.Role != entity.RoleSuperAdmin {
		if in.StoreID == "" {
			return nil, domain.Invalid("store_id es obligatorio para el rol '%s'", in.Role)
		}
		exists, err := uc.storeRepo.Exists(ctx, in.StoreID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.NotFound("store", in.StoreID)
		}
	}
	existing, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Conflict("el email ya está registrado")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := uc.now().UTC()
	u := &entity.User{
		ID:           uuid.New().String(),
		StoreID:      in.StoreID,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = uc.txRunner.RunCatalog(ctx, func(seqRepo repository.SequenceRepository, _ repository.ProductRepository, userRepo repository.UserRepository) error {
		code, err := uc.allocator.NextInTx(ctx, seqRepo, prefix)
		if err != nil {
			return err
		}
		u.UserCode = code
		if err := userRepo.Create(ctx, u); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return domain.Conflict("el email ya está registrado")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("user_id", u.ID).Str("user_code", u.UserCode).Str("role", u.Role).Msg("usuario creado")
	uc.sink.Record(entity.AuditEvent{
		Action:     entity.AuditActionUserCreated,
		EntityType: "user",
		EntityID:   u.ID,
		ActorID:    in.CreatedBy,
		StoreID:    u.StoreID,
		After: map[string]any{
			"id":         u.ID,
			"user_code":  u.UserCode,
			"email":      u.Email,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"role":       u.Role,
			"store_id":   u.StoreID,
		},
		Metadata: map[string]any{"source": "catalog"},
	})
	return u, nil
}
