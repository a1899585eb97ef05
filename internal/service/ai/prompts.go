package ai

import (
	"fmt"
	"strings"
)

// SystemInstruction 对话模式下的系统提示
const SystemInstruction = `You are Likeness Ai, a specialized agent for Intellectual Property, Copyright, and Likeness protection.

Your Capabilities:
1. SCORE IDEAS: When a user shares an idea, analyze its Patent Potential (1-100) and Copyright Strength (1-100).
2. DETECT AI: Analyze descriptions or images to determine if they are AI-generated deepfakes.
3. PROTECT: Advise on trademarking and licensing.

Tone: Professional, Direct, Minimalist, Helpful.
Keep responses concise and scannable.`

// ImageSystemInstruction 带图片的单轮分析使用的系统提示
const ImageSystemInstruction = "You are Likeness Ai. Analyze this image. Is it Real or AI? Has it been used elsewhere?"

// DefaultImagePrompt 用户只上传图片、未输入文字时使用
const DefaultImagePrompt = "Analyze this image for AI manipulation and likeness usage."

const faceAnalysisPrompt = `Analyze this image for human faces using Google's facial analysis standards.
Return a JSON object with a property "faces".
"faces" is an array of objects, where each object has:
- "boundingBox": [ymin, xmin, ymax, xmax] (values 0 to 1000 integers)
- "demographics": string (e.g., "Young Adult Female")
- "expression": string
- "isReal": boolean (is it likely a real photo or AI generated?)
- "similarityScore": number (0-100, similarity to a "generic public figure" or just quality score)`

const transcribePrompt = "Transcribe this voice note verbatim. Return only the transcript text."

func buildScorePrompt(idea string) string {
	return fmt.Sprintf(`Analyze this idea for Intellectual Property strength.
Idea: %q

Provide:
1. Patent Potential Score (0-100)
2. Copyright Strength Score (0-100)
3. Brief reasoning.

Return JSON.`, idea)
}

func buildLegalPrompt(violator, asset, usage string) string {
	var b strings.Builder
	b.WriteString("Draft a strict, formal Cease and Desist letter.\n")
	b.WriteString("Sender: Likeness Ai Protection (on behalf of User).\n")
	fmt.Fprintf(&b, "Recipient: %s\n", violator)
	fmt.Fprintf(&b, "Infringing Activity: Using protected asset %q in the following manner: %s.\n", asset, usage)
	b.WriteString("Demands: Immediate removal of content and payment of licensing fees.\n")
	b.WriteString("Tone: Highly legal, intimidating, corporate.")
	return b.String()
}
