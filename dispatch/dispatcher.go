package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"crosswalk/core"
	"crosswalk/metrics"
	"crosswalk/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// ErrUnknownTool is returned when a call names no registered tool
var ErrUnknownTool = errors.New("unknown tool")

// Call outcomes recorded in crosswalk_tool_calls_total
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeInvalid  = "invalid"
	outcomeUnknown  = "unknown_tool"
	outcomeError    = "error"
)

// Consumer-side views of the services, one per tool family

type Searcher interface {
	Search(ctx context.Context, query string, filter core.SearchFilter) ([]core.SearchResult, error)
}

type RequirementResolver interface {
	GetRequirement(ctx context.Context, lookup service.RequirementLookup) (*core.RequirementDetail, error)
}

type LevelMapper interface {
	MapSecurityLevel(ctx context.Context, level int, componentType *string, includeEnhancements bool) ([]core.LevelRequirement, error)
}

type ZoneGuide interface {
	ZoneConduitGuidance(ctx context.Context, filter core.ZoneFilter) (*core.ZoneGuidance, error)
}

type TechniqueResolver interface {
	GetTechnique(ctx context.Context, techniqueID string, includeMitigations bool, mapToStandards []string) (*core.TechniqueDetail, error)
}

type RationaleAggregator interface {
	GetRationale(ctx context.Context, standardID, requirementID string) (*core.RationaleDetail, error)
}

type StandardLister interface {
	ListStandards(ctx context.Context) ([]core.StandardSummary, error)
}

// Services bundles the operations the dispatcher routes to. Every field is required.
type Services struct {
	Search       Searcher
	Requirements RequirementResolver
	Levels       LevelMapper
	Zones        ZoneGuide
	Techniques   TechniqueResolver
	Rationale    RationaleAggregator
	Standards    StandardLister
}

// Response is the payload of one tool call. Found is false when the result is
// the not-found sentinel (nil) or an empty list.
type Response struct {
	CallID string      `json:"call_id"`
	Tool   string      `json:"tool"`
	Found  bool        `json:"found"`
	Result interface{} `json:"result"`
}

// handler decodes typed params and invokes one operation
type handler func(ctx context.Context, d *Dispatcher, args []byte) (result interface{}, found bool, err error)

type registeredTool struct {
	def     Tool
	schema  *gojsonschema.Schema
	handler handler
}

// Dispatcher routes (tool name, argument object) calls to the services
type Dispatcher struct {
	services Services
	tools    map[string]*registeredTool
	order    []string
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

// NewDispatcher compiles every tool schema and wires the handlers.
// Panics on a nil service or logger.
func NewDispatcher(services Services, logger *zap.SugaredLogger) (*Dispatcher, error) {
	if logger == nil {
		panic("logger is required")
	}
	v := reflect.ValueOf(services)
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).IsNil() {
			panic(fmt.Sprintf("service %s is required", v.Type().Field(i).Name))
		}
	}

	handlers := map[string]handler{
		ToolSearchRequirements:  handleSearch,
		ToolGetRequirement:      handleRequirement,
		ToolMapSecurityLevel:    handleLevel,
		ToolZoneConduitGuidance: handleZones,
		ToolGetTechnique:        handleTechnique,
		ToolGetRationale:        handleRationale,
		ToolListStandards:       handleStandards,
	}

	d := &Dispatcher{
		services: services,
		tools:    make(map[string]*registeredTool, len(toolDefinitions)),
		validate: newValidator(),
		logger:   logger,
	}
	for _, def := range toolDefinitions {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(def.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for tool %s: %w", def.Name, err)
		}
		h, ok := handlers[def.Name]
		if !ok {
			return nil, fmt.Errorf("no handler for tool %s", def.Name)
		}
		d.tools[def.Name] = &registeredTool{def: def, schema: schema, handler: h}
		d.order = append(d.order, def.Name)
	}
	return d, nil
}

// newValidator reports struct fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Tools returns the registered tool definitions in registration order
func (d *Dispatcher) Tools() []Tool {
	tools := make([]Tool, 0, len(d.order))
	for _, name := range d.order {
		tools = append(tools, d.tools[name].def)
	}
	return tools
}

// Call validates rawArgs against the tool's schema, decodes them, applies
// defaults and runs the operation.
//
// ERRORS:
//   - ErrUnknownTool (wrapped) when toolName is not registered
//   - *core.ValidationError for schema, decoding or range failures
//   - not-found is never an error: Response.Found is false and Result is nil
func (d *Dispatcher) Call(ctx context.Context, toolName string, rawArgs json.RawMessage) (*Response, error) {
	start := time.Now()
	callID := uuid.New().String()

	tool, ok := d.tools[toolName]
	if !ok {
		metrics.ToolCalls.WithLabelValues("unknown", outcomeUnknown).Inc()
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, toolName)
	}

	args := bytes.TrimSpace(rawArgs)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = []byte("{}")
	}

	result, found, err := d.invoke(ctx, tool, args)
	elapsed := time.Since(start)
	metrics.ToolDuration.WithLabelValues(toolName).Observe(elapsed.Seconds())

	outcome := outcomeOK
	switch {
	case err != nil && core.IsValidation(err):
		outcome = outcomeInvalid
	case err != nil:
		outcome = outcomeError
	case !found:
		outcome = outcomeNotFound
	}
	metrics.ToolCalls.WithLabelValues(toolName, outcome).Inc()

	d.logger.Debugw("Tool call completed",
		"call_id", callID,
		"tool", toolName,
		"outcome", outcome,
		"duration", elapsed)

	if err != nil {
		return nil, err
	}
	return &Response{CallID: callID, Tool: toolName, Found: found, Result: result}, nil
}

func (d *Dispatcher) invoke(ctx context.Context, tool *registeredTool, args []byte) (interface{}, bool, error) {
	res, err := tool.schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return nil, false, core.NewValidationError("arguments", nil, fmt.Sprintf("malformed JSON: %v", err))
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, desc := range res.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, false, core.NewValidationError("arguments", nil, strings.Join(msgs, "; "))
	}
	return tool.handler(ctx, d, args)
}

// decode unmarshals args over params (which already hold defaults) and runs
// the struct validator
func (d *Dispatcher) decode(args []byte, params interface{}) error {
	if err := json.Unmarshal(args, params); err != nil {
		return core.NewValidationError("arguments", nil, err.Error())
	}
	if err := d.validate.Struct(params); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return core.NewValidationError(fe.Field(), fe.Value(), fmt.Sprintf("failed %q constraint", fe.Tag()))
		}
		return core.NewValidationError("arguments", nil, err.Error())
	}
	return nil
}

// ============================================================================
// Handlers
// ============================================================================

func handleSearch(ctx context.Context, d *Dispatcher, args []byte) (interface{}, bool, error) {
	p := defaultSearchParams()
	if err := d.decode(args, p); err != nil {
		return nil, false, err
	}
	results, err := d.services.Search.Search(ctx, p.Query, core.SearchFilter{
		Standards:     p.Standards,
		SecurityLevel: p.SecurityLevel,
		ComponentType: p.ComponentType,
		Limit:         p.Limit,
	})
	if err != nil {
		return nil, false, err
	}
	return results, len(results) > 0, nil
}

func handleRequirement(ctx context.Context, d *Dispatcher, args []byte) (interface{}, bool, error) {
	p := defaultRequirementParams()
	if err := d.decode(args, p); err != nil {
		return nil, false, err
	}
	detail, err := d.services.Requirements.GetRequirement(ctx, service.RequirementLookup{
		StandardID:      p.Standard,
		RequirementID:   p.RequirementID,
		Version:         p.Version,
		IncludeMappings: p.IncludeMappings,
	})
	if err != nil || detail == nil {
		return nil, false, err
	}
	return detail, true, nil
}

func handleLevel(ctx context.Context, d *Dispatcher, args []byte) (interface{}, bool, error) {
	p := defaultLevelParams()
	if err := d.decode(args, p); err != nil {
		return nil, false, err
	}
	results, err := d.services.Levels.MapSecurityLevel(ctx, p.SecurityLevel, p.ComponentType, p.IncludeEnhancements)
	if err != nil {
		return nil, false, err
	}
	return results, len(results) > 0, nil
}

func handleZones(ctx context.Context, d *Dispatcher, args []byte) (interface{}, bool, error) {
	p := &ZoneParams{}
	if err := d.decode(args, p); err != nil {
		return nil, false, err
	}
	guidance, err := d.services.Zones.ZoneConduitGuidance(ctx, core.ZoneFilter{
		PurdueLevel:           p.PurdueLevel,
		SecurityLevelTarget:   p.SecurityLevelTarget,
		ReferenceArchitecture: p.ReferenceArchitecture,
	})
	if err != nil || guidance == nil {
		return nil, false, err
	}
	return guidance, true, nil
}

func handleTechnique(ctx context.Context, d *Dispatcher, args []byte) (interface{}, bool, error) {
	p := defaultTechniqueParams()
	if err := d.decode(args, p); err != nil {
		return nil, false, err
	}
	detail, err := d.services.Techniques.GetTechnique(ctx, p.TechniqueID, p.IncludeMitigations, p.MapToStandards)
	if err != nil || detail == nil {
		return nil, false, err
	}
	return detail, true, nil
}

func handleRationale(ctx context.Context, d *Dispatcher, args []byte) (interface{}, bool, error) {
	p := &RationaleParams{}
	if err := d.decode(args, p); err != nil {
		return nil, false, err
	}
	detail, err := d.services.Rationale.GetRationale(ctx, p.Standard, p.RequirementID)
	if err != nil || detail == nil {
		return nil, false, err
	}
	return detail, true, nil
}

func handleStandards(ctx context.Context, d *Dispatcher, args []byte) (interface{}, bool, error) {
	standards, err := d.services.Standards.ListStandards(ctx)
	if err != nil {
		return nil, false, err
	}
	return standards, len(standards) > 0, nil
}
