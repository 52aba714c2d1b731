package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeAnalyzeReferences() string {
	return `Builds the file reference graph of a repository (imports, requires, includes, stylesheet and markup links, config and script paths) and reports unused files and broken references.

USE WHEN:
- Looking for files nothing reaches from the project's entry points
- Checking a change for imports or paths that no longer resolve
- Auditing a repository before deleting or moving files

INTERPRETING RESULTS:
- unusedFiles: source files unreachable from every entry point
- reason "no references found": the file references nothing and nothing references it
- reason "unreachable from entry points": the file is linked to other files, but no chain starts at an entry point (often a dead cluster or cycle)
- brokenReferences: relative or rooted references whose target is not in the tree; resolution says which strategy failed
- Package imports and URLs are external and never reported
- Binary, oversized or unreadable files are counted in totalFiles but never reported unused
- dropped > 0 means the lists were trimmed to fit max_tokens; rerun with a larger budget for the full list

METRICS RETURNED:
- totalFiles, analyzedFiles
- unusedFiles: filePath, reason, fileSize
- brokenReferences: sourceFile, referencedPath, lineNumber, referenceType, resolution
- entryPoints and reference cycles`
}

func describeExplainReference() string {
	return `Explains why one file was classified as used or unused.

USE WHEN:
- Verifying a file reported unused before deleting it
- Finding which entry point keeps a file alive
- Listing what references a file and what it references

INTERPRETING RESULTS:
- status entry: the file matches an entry-point rule (rule names it)
- status reachable: chain is the shortest path from an entry point to the file
- status unused: reason explains the classification
- status never-unused: an allow-list rule protects the file (rule names it)
- status not-analyzed: the file could not be read or is binary
- status not-source: no extractor applies to the file; it can be referenced but never reported
- file accepts an exact path, a glob, a file name or a path suffix; an ambiguous value returns the candidates

METRICS RETURNED:
- file, status, reason, rule, chain
- referrers and references (other files)
- brokenReferences originating in the file`
}
