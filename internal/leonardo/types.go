package leonardo

import "sort"

// Wire shapes for the Leonardo REST v1 API. Field names and the fixed strings
// below must stay exactly as the service expects them.

const (
	// NegativePrompt is sent with every generation request.
	NegativePrompt = "blurry, low quality, distorted face, deformed hands, extra limbs, bad anatomy, poor composition, watermark, text, jpeg artifacts"

	imageWidth     = 1024
	imageHeight    = 576
	imagesPerScene = 1
)

type generationRequest struct {
	Prompt         string   `json:"prompt"`
	ModelID        string   `json:"modelId"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	NumImages      int      `json:"num_images"`
	NegativePrompt string   `json:"negative_prompt"`
	Alchemy        bool     `json:"alchemy,omitempty"`
	PromptMagic    bool     `json:"promptMagic,omitempty"`
	PhotoReal      bool     `json:"photoReal,omitempty"`
	InitImageIDs   []string `json:"init_image_ids,omitempty"`
}

type generationCreateResponse struct {
	SDGenerationJob struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
}

type generationStatusResponse struct {
	GenerationsByPK *struct {
		Status          string `json:"status"`
		Error           string `json:"error"`
		GeneratedImages []struct {
			URL string `json:"url"`
		} `json:"generated_images"`
	} `json:"generations_by_pk"`
}

type initImageCreateResponse struct {
	UploadInitImage struct {
		ID     string `json:"id"`
		URL    string `json:"url"`
		Fields string `json:"fields"` // JSON-encoded form fields for the upload target
		Key    string `json:"key"`
	} `json:"uploadInitImage"`
}

type initImageConfirmResponse struct {
	InitImagesByPK *struct {
		ID string `json:"id"`
	} `json:"init_images_by_pk"`
}

// Model is one selectable generation model. PhotoReal models swap the default
// alchemy/prompt-magic enhancement flags for the photoReal flag; exactly one
// flag set is ever active.
type Model struct {
	Name      string
	ID        string
	PhotoReal bool
}

// DefaultModel is the model used when the caller does not pick one.
const DefaultModel = "creative"

var models = map[string]Model{
	"creative":  {Name: "creative", ID: "ac614f96-1082-45bf-be9d-757f2d31c174"},
	"vision-xl": {Name: "vision-xl", ID: "5c232a9e-9061-4777-980a-ddc8e65647c6"},
	"photoreal": {Name: "photoreal", ID: "5c232a9e-9061-4777-980a-ddc8e65647c6", PhotoReal: true},
}

// LookupModel resolves a model by its user-facing name.
func LookupModel(name string) (Model, bool) {
	m, ok := models[name]
	return m, ok
}

// ModelNames lists the supported model names in stable order.
func ModelNames() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
