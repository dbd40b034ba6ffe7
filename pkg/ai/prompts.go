package ai

// LabelPrompt asks the model to name a topical cluster from document
// samples. The %s placeholder receives the formatted sample block.
const LabelPrompt = `You are naming a topical cluster in a research corpus about regional energy systems.

Below are titles and excerpts of documents that were grouped together because their content is semantically similar. Derive what they have in common and produce:

- "label": a short topical name for the group (at most 6 words, no trailing punctuation)
- "description": one or two sentences describing the shared topic
- "keywords": between 3 and 5 lowercase keywords capturing the topic

Base the label only on the documents shown. Do not invent topics that are not supported by them.

%s`
