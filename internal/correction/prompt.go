package correction

// SystemPrompt instructs the model to fix OCR errors without rewriting.
const SystemPrompt = `You are a helpful assistant. Your task is to correct OCR errors in the text you are given. You should also correct those "-" characters that denote an unrecognized letter. You must stay as close as possible to the original text. Do not rephrase. Only correct the errors. Do not separately list the corrections, do not produce any additional output, output the corrected text only. You will be rewarded. Thank you.`

const healthPrompt = "Reply with the single word OK."
