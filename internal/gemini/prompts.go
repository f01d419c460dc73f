package gemini

// detectLanguagePrompt asks for a bare language name so the answer can be
// used verbatim as the sticky conversation language. The model must answer
// "unknown" rather than guess.
const detectLanguagePrompt = `Identify the language of the following text.
Answer with the English name of the language only, as a single word or short phrase (for example: English, Portuguese, Japanese).
If the text is too short, ambiguous, or mixed to identify confidently, answer exactly: unknown

Text:
%s`

// mediaAnalysisInstruction is appended to the system instruction when the
// incoming message carries an image or video.
const mediaAnalysisInstruction = `The user attached media (an image or a video) to their message. Look at it and respond in character, weaving what you see into your reply. The caption, if any, is the user's message text.`
