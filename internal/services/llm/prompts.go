package llm

const topicExtractionPrompt = `Analyze the email provided by the user.
1. Generate a concise, catchy title for this topic (max 10 words).
2. Extract the primary URL link if present. If multiple, choose the most relevant one.
3. Format the content into a clean string suitable for reading.

Respond with JSON only, using this schema:
{"title": string, "content": string, "extracted_link": string}

Leave "extracted_link" empty when the email contains no URL.`

const scriptPolishPrompt = `You are being presented with a transcript that is intended to be read aloud to an audience.
Your task is to take the transcript and do the minimal amount of editing to make it flow naturally as a monologue.
You should not add an intro or outro, summarize, or change ANYTHING in the substance of the transcript.

You may make the following changes:
- Add punctuation to guide natural pausing and intonation.
- Add minor transitions between segments only if necessary.
- Correct obvious typos or errors.

Respond with JSON only, using this schema:
{"script": string}`
