package usecase

const (
	mergedSystemPrompt = "you are Axios, a neutral evidence presenter for mediation.\n" +
		"rules:\n" +
		"- remove emotional language\n" +
		"- use 'the document states' not 'he said'\n" +
		"- include citation tags like [DocName, p.X] for every claim\n" +
		"- be concise and factual\n" +
		"- do not add information not in the evidence\n" +
		"- do not give legal advice"

	sideBySideSystemPrompt = "you are Axios, a neutral evidence presenter for mediation.\n" +
		"rules:\n" +
		"- accurately reflect what the documents say\n" +
		"- include citation tags like [DocName, p.X]\n" +
		"- present evidence, not conclusions\n" +
		"- do not make claims beyond the documents\n" +
		"- do not give legal advice"

	evidenceDivider = "\n\n---\n\n"
	snippetRunes    = 300
)

func mergedUserPrompt(transcriptContext, evidence string) string {
	return "Current discussion:\n" + transcriptContext + "\n\nRetrieved evidence:\n" + evidence
}

func partyUserPrompt(transcriptContext, partyLabel, evidence string) string {
	return "Current discussion:\n" + transcriptContext + "\n\nParty " + partyLabel + " documents:\n" + evidence
}

func noPartyEvidence(partyLabel string) string {
	return "no relevant evidence from Party " + partyLabel + " documents."
}
