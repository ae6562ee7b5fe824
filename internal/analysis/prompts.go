package analysis

import "fmt"

// SystemPrompt fixes the analyst role and the JSON contract the reply must follow.
const SystemPrompt = `You are a senior cross-border e-commerce product analyst. You identify sourceable products shown in short-video content.

Your task:
1. Identify the main product shown in the video.
2. Describe its materials, functions and approximate size.
3. Judge its market potential and how hard it is to source.
4. Give practical sourcing advice.

Reply with a single JSON object in exactly this shape and nothing else:
{
  "product_name": "English name / 中文名称",
  "category": "Product category",
  "features": ["feature 1", "feature 2"],
  "materials": ["material 1", "material 2"],
  "estimated_dimensions": "approximate size",
  "target_audience": "who buys it",
  "selling_points": ["selling point 1", "selling point 2"],
  "estimated_price_range": "estimated FOB price range",
  "sourcing_difficulty": "low | medium | high",
  "sourcing_advice": "sourcing advice",
  "confidence": 0.85
}`

const userPromptTemplate = `Analyze the product shown in this short video.

Video reference: %s
%s

Pay particular attention to:
- the product's core function and usage scenarios
- likely materials and build quality
- competitiveness on cross-border marketplaces
- the type of factory suited to make it (injection molding, hardware, electronics, textiles)`

// UserPrompt renders the per-request instruction for reference. frameCount is
// the number of frames attached as images.
func UserPrompt(reference string, frameCount int) string {
	var frameNote string
	switch frameCount {
	case 0:
		frameNote = "No frames could be attached; assume it is a typical trending product video (home gadget, creative electronics) and analyze from the reference alone."
	case 1:
		frameNote = "One key frame from the video is attached."
	default:
		frameNote = fmt.Sprintf("%d key frames from the video are attached, in playback order.", frameCount)
	}
	return fmt.Sprintf(userPromptTemplate, reference, frameNote)
}
