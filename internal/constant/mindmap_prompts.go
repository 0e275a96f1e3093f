package constant

// System prompt shared by every mind map operation. The model must
// answer with a single JSON object and nothing else.
const MindMapSystemPrompt = `
You are a knowledge-mapping engine. You turn source material into
hierarchical mind maps.

Rules:
1. Output MUST be a single valid JSON object. No markdown fences, no prose.
2. Every node has: "id" (string, unique inside the map), "title" (short label),
   "content" (1-3 sentence explanation), "children" (array, may be empty).
3. The root node has "id": "root" and its title names the overall topic.
4. Stay faithful to the source material. Do not invent facts.
`

// Per-complexity instructions appended to the generate prompt.
const (
	GeneratePromptSimple = `
Build a mind map from the source material below.
Keep it compact: at most 2 levels below the root and at most 4 children per node.

Source material:
%s

Output JSON shape:
{"title": "...", "nodes": [{"id": "root", "title": "...", "content": "...", "children": [...]}]}
`

	GeneratePromptModerate = `
Build a mind map from the source material below.
Aim for 3 levels below the root where the material supports it, at most 6 children per node.
Group related ideas under shared parents instead of flat lists.

Source material:
%s

Output JSON shape:
{"title": "...", "nodes": [{"id": "root", "title": "...", "content": "...", "children": [...]}]}
`

	GeneratePromptComplex = `
Build a thorough mind map from the source material below.
Use up to 4 levels below the root. Capture secondary themes, contrasts and
relationships, not just the headline points. At most 8 children per node.

Source material:
%s

Output JSON shape:
{"title": "...", "nodes": [{"id": "root", "title": "...", "content": "...", "children": [...]}]}
`
)

// ExpandNodePrompt asks for new children under one existing node.
// Args: node title, node content, source material.
const ExpandNodePrompt = `
Expand the following mind map node with child nodes.

Node: "%s"
Node explanation: %s

Relevant source material:
%s

Return ONLY JSON. The top-level "title" and "content" refresh the
expanded node itself when its wording can be improved, otherwise omit them:
{"title": "...", "content": "...", "children": [{"id": "...", "title": "...", "content": "...", "children": []}]}
Ids must not collide with "root". Between 2 and 6 children.
`

// RegenerateNodePrompt asks for a replacement subtree for one node.
// Args: node title, node content, source material.
const RegenerateNodePrompt = `
Rewrite the following mind map node and its subtree from scratch.
Keep the node focused on the same topic but improve structure and wording.

Node: "%s"
Current explanation: %s

Relevant source material:
%s

Return ONLY the replacement node as JSON:
{"node": {"id": "...", "title": "...", "content": "...", "children": [...]}}
`

// SummarizeMapPrompt asks for a prose summary of a whole map.
// Args: serialized outline.
const SummarizeMapPrompt = `
Summarize the following mind map outline as readable prose.
Cover every top-level branch, 2-4 paragraphs total.

Outline:
%s

Return ONLY JSON: {"summary": "..."}
`
