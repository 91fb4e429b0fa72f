package conversation

import "strings"

// DefaultPersona is the instruction placed before the corpus
const DefaultPersona = `You are Repo Pilot. The following is the source code of a project. Read the code carefully, then answer my questions accurately and concisely.
When you refer to code, cite the file path exactly as it appears in the source (owner/name/blob/branch/path) so it can be opened on GitHub.
If code is needed in a reply, include only the minimal relevant snippet, never a whole file.`

// SystemInstruction joins the persona and the corpus content
func SystemInstruction(persona, content string) string {
	if persona == "" {
		persona = DefaultPersona
	}
	return strings.TrimSpace(persona) + "\n\n" + content
}
