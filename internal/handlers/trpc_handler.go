package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-analyzer/internal/models"
	"alfredoptarigan/cv-analyzer/internal/services"
)

const procedureAnalyzeCV = "analyzeCV"

// tRPC JSON-RPC error codes, see @trpc/server TRPC_ERROR_CODES_BY_KEY.
const (
	trpcParseError         = -32700
	trpcBadRequest         = -32600
	trpcNotFound           = -32004
	trpcMethodNotSupported = -32005
)

type trpcResponse struct {
	Result *trpcResult     `json:"result,omitempty"`
	Error  *trpcErrorShape `json:"error,omitempty"`
}

type trpcResult struct {
	Data models.ResultEnvelope `json:"data"`
}

type trpcErrorShape struct {
	Message string        `json:"message"`
	Code    int           `json:"code"`
	Data    trpcErrorData `json:"data"`
}

type trpcErrorData struct {
	Code       string `json:"code"`
	HTTPStatus int    `json:"httpStatus"`
	Path       string `json:"path,omitempty"`
}

type TRPCHandler struct {
	normalizer services.DocumentNormalizer
	analyzer   services.AnalyzerService
	validate   *validator.Validate
}

func NewTRPCHandler(
	normalizer services.DocumentNormalizer,
	analyzer services.AnalyzerService,
) *TRPCHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &TRPCHandler{
		normalizer: normalizer,
		analyzer:   analyzer,
		validate:   validate,
	}
}

// HandleMutation handles POST /trpc/:procedure, including batched calls (?batch=1) where
// the path lists procedures separated by commas and the body maps call index to input.
func (h *TRPCHandler) HandleMutation(c *fiber.Ctx) error {
	batch := c.Query("batch") == "1"
	paths := procedurePaths(c, batch)

	inputs, err := h.readInputs(c, len(paths), batch)
	if err != nil {
		return writeTRPC(c, batch, []trpcResponse{newTRPCError(trpcParseError, "PARSE_ERROR", fiber.StatusBadRequest, "", err.Error())})
	}

	responses := make([]trpcResponse, len(paths))
	for i, path := range paths {
		responses[i] = h.call(c, path, inputs[i])
	}

	return writeTRPC(c, batch, responses)
}

// HandleQuery handles GET /trpc/:procedure. analyzeCV is a mutation, so every GET is rejected.
func (h *TRPCHandler) HandleQuery(c *fiber.Ctx) error {
	batch := c.Query("batch") == "1"
	paths := procedurePaths(c, batch)

	responses := make([]trpcResponse, len(paths))
	for i, path := range paths {
		if path != procedureAnalyzeCV {
			responses[i] = notFound(path, "query")
			continue
		}
		responses[i] = newTRPCError(trpcMethodNotSupported, "METHOD_NOT_SUPPORTED", fiber.StatusMethodNotAllowed, path,
			fmt.Sprintf("Unsupported GET-request to mutation procedure at path %q", path))
	}

	return writeTRPC(c, batch, responses)
}

// procedurePaths lists the called procedures. Only a batch splits the path on commas;
// otherwise the whole path is one procedure name.
func procedurePaths(c *fiber.Ctx, batch bool) []string {
	path := c.Params("procedure")
	if !batch {
		return []string{path}
	}
	return strings.Split(path, ",")
}

func (h *TRPCHandler) call(c *fiber.Ctx, path string, raw json.RawMessage) trpcResponse {
	if path != procedureAnalyzeCV {
		return notFound(path, "mutation")
	}

	input, err := h.parseInput(raw)
	if err != nil {
		return newTRPCError(trpcBadRequest, "BAD_REQUEST", fiber.StatusBadRequest, path, err.Error())
	}

	documents, err := h.normalizer.FromBase64(*input.JobDescription, *input.CV)
	if err != nil {
		return trpcResponse{Result: &trpcResult{Data: RPCEnvelope(nil, err)}}
	}

	result, err := h.analyzer.Analyze(c.UserContext(), services.AnalysisRequest{
		RequestID: requestID(c),
		Transport: models.TransportRPC,
		Documents: documents,
	})

	return trpcResponse{Result: &trpcResult{Data: RPCEnvelope(result, err)}}
}

// readInputs returns one raw input per call. A multipart body is turned into the
// equivalent JSON input when both file parts are present.
func (h *TRPCHandler) readInputs(c *fiber.Ctx, calls int, batch bool) ([]json.RawMessage, error) {
	inputs := make([]json.RawMessage, calls)

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		raw, err := multipartInput(c)
		if err != nil {
			return nil, err
		}
		for i := range inputs {
			inputs[i] = raw
		}
		return inputs, nil
	}

	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return inputs, nil
	}

	if !batch {
		if !json.Valid(body) {
			return nil, errors.New("request body is not valid JSON")
		}
		inputs[0] = body
		return inputs, nil
	}

	var byIndex map[string]json.RawMessage
	if err := json.Unmarshal(body, &byIndex); err != nil {
		return nil, fmt.Errorf("batch body must be an object keyed by call index: %w", err)
	}
	for i := range inputs {
		inputs[i] = byIndex[strconv.Itoa(i)]
	}

	return inputs, nil
}

func multipartInput(c *fiber.Ctx) (json.RawMessage, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	jobFile := firstFile(form, fieldJobDescription)
	cvFile := firstFile(form, fieldCV)
	if jobFile == nil || cvFile == nil {
		return nil, nil
	}

	jobData, err := services.EncodeUpload(jobFile)
	if err != nil {
		return nil, err
	}
	cvData, err := services.EncodeUpload(cvFile)
	if err != nil {
		return nil, err
	}

	return json.Marshal(models.AnalyzeCVInput{JobDescription: &jobData, CV: &cvData})
}

func (h *TRPCHandler) parseInput(raw json.RawMessage) (*models.AnalyzeCVInput, error) {
	var input models.AnalyzeCVInput
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &input); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
	}

	if err := h.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
		return nil, fmt.Errorf("invalid input: %s", strings.Join(fields, ", "))
	}

	return &input, nil
}

func notFound(path, kind string) trpcResponse {
	return newTRPCError(trpcNotFound, "NOT_FOUND", fiber.StatusNotFound, path,
		fmt.Sprintf("No %q-procedure on path %q", kind, path))
}

func newTRPCError(code int, key string, status int, path, message string) trpcResponse {
	return trpcResponse{Error: &trpcErrorShape{
		Message: message,
		Code:    code,
		Data: trpcErrorData{
			Code:       key,
			HTTPStatus: status,
			Path:       path,
		},
	}}
}

func writeTRPC(c *fiber.Ctx, batch bool, responses []trpcResponse) error {
	if !batch {
		return c.Status(responseStatus(responses[0])).JSON(responses[0])
	}

	status := responseStatus(responses[0])
	for _, resp := range responses[1:] {
		if responseStatus(resp) != status {
			status = fiber.StatusMultiStatus
			break
		}
	}
	return c.Status(status).JSON(responses)
}

func responseStatus(resp trpcResponse) int {
	if resp.Error != nil {
		return resp.Error.Data.HTTPStatus
	}
	return fiber.StatusOK
}
