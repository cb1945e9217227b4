package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
	"github.com/linemk/clothing-shop/internal/lib/logger/sl"
	"github.com/linemk/clothing-shop/internal/service"
	"github.com/shopspring/decimal"
)

var productSorts = map[string]models.ProductSort{
	string(models.SortNewest):    models.SortNewest,
	string(models.SortPriceAsc):  models.SortPriceAsc,
	string(models.SortPriceDesc): models.SortPriceDesc,
	string(models.SortNameAsc):   models.SortNameAsc,
	string(models.SortNameDesc):  models.SortNameDesc,
}

// ListProductsHandler отдаёт каталог с фильтрами из строки запроса
func ListProductsHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		filter, err := parseProductFilter(r.URL.Query())
		if err != nil {
			logger.Info("invalid query", slog.String("reason", err.Error()))
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		page, err := productService.ListProducts(r.Context(), filter)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		respondJSON(w, logger, http.StatusOK, envelope{
			"products": page.Products,
			"total":    page.Total,
			"page":     page.Page,
			"limit":    page.Limit,
		})
	}
}

func parseProductFilter(q url.Values) (models.ProductFilter, error) {
	filter := models.ProductFilter{
		Categories:    splitValues(q["category"]),
		SubCategories: splitValues(q["subCategory"]),
		Search:        strings.TrimSpace(q.Get("search")),
	}

	for _, bound := range []struct {
		key string
		dst **decimal.Decimal
	}{{"minPrice", &filter.MinPrice}, {"maxPrice", &filter.MaxPrice}} {
		raw := strings.TrimSpace(q.Get(bound.key))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			return filter, errors.New("invalid " + bound.key)
		}
		*bound.dst = &d
	}

	if raw := q.Get("bestseller"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errors.New("invalid bestseller")
		}
		filter.Bestseller = &b
	}

	if raw := q.Get("sort"); raw != "" {
		sort, ok := productSorts[raw]
		if !ok {
			return filter, errors.New("invalid sort")
		}
		filter.Sort = sort
	}

	for _, num := range []struct {
		key string
		dst *int
	}{{"page", &filter.Page}, {"limit", &filter.Limit}} {
		raw := q.Get(num.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, errors.New("invalid " + num.key)
		}
		*num.dst = n
	}

	return filter, nil
}

// splitValues принимает как повторяющиеся параметры, так и список через запятую
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func GetProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := uuidParam(w, r, logger, "id")
		if !ok {
			return
		}

		product, err := productService.GetProduct(r.Context(), id)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		respondJSON(w, logger, http.StatusOK, envelope{"product": product})
	}
}

// AddProductHandler принимает multipart-форму: поля товара и файлы image1..image4
func AddProductHandler(log *slog.Logger, productService service.ProductService, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddProductHandler"
		logger := log.With(slog.String("op", op))

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			logger.Info("invalid multipart form", sl.Err(err))
			respondMessage(w, logger, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		in, err := parseProductForm(r)
		if err != nil {
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		images, err := readImages(r.MultipartForm)
		if err != nil {
			logger.Info("invalid images", slog.String("reason", err.Error()))
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		product, err := productService.CreateProduct(r.Context(), in, images)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		logger.Info("product added", slog.String("id", product.ID.String()))
		respondJSON(w, logger, http.StatusCreated, envelope{"message": "product added", "product": product})
	}
}

func parseProductForm(r *http.Request) (service.ProductInput, error) {
	in := service.ProductInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		SubCategory: r.FormValue("subCategory"),
		Sizes:       parseSizes(r.FormValue("sizes")),
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		return in, errors.New("invalid price")
	}
	in.Price = price

	if raw := r.FormValue("bestseller"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return in, errors.New("invalid bestseller")
		}
		in.Bestseller = b
	}
	return in, nil
}

// parseSizes понимает JSON-массив (["S","M"]) и список через запятую
func parseSizes(raw string) []string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var sizes []string
		if err := json.Unmarshal([]byte(raw), &sizes); err == nil {
			return sizes
		}
	}
	return splitValues([]string{raw})
}

// readImages читает файлы image1..image4 по порядку, пропуская отсутствующие
func readImages(form *multipart.Form) ([][]byte, error) {
	var images [][]byte
	for i := 1; i <= service.MaxProductImages; i++ {
		field := "image" + strconv.Itoa(i)
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		data, err := readImage(headers[0])
		if err != nil {
			return nil, errors.New(field + ": " + err.Error())
		}
		images = append(images, data)
	}
	return images, nil
}

func readImage(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("cannot open file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("cannot read file")
	}
	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return nil, errors.New("file is not an image")
	}
	return data, nil
}

func DeleteProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := uuidParam(w, r, logger, "id")
		if !ok {
			return
		}

		if err := productService.DeleteProduct(r.Context(), id); err != nil {
			respondError(w, logger, err)
			return
		}

		respondMessage(w, logger, http.StatusOK, "product removed")
	}
}

// uuidParam читает идентификатор из пути; при ошибке ответ уже отправлен
func uuidParam(w http.ResponseWriter, r *http.Request, log *slog.Logger, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondMessage(w, log, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
