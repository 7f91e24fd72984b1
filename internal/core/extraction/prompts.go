package extraction

import "github.com/avelinsk/finpaper/internal/core/domain"

const routerSystemPrompt = `You are an expert document classifier for financial documents.

Your task is to analyze the provided document and classify it into one of these categories:

1. **bank_statement** - Bank account statements showing transactions, balances, account details
2. **invoice** - Bills or invoices from vendors/sellers requesting payment for goods/services
3. **receipt** - Proof of purchase/payment from merchants showing items bought and amounts paid
4. **unknown** - Use this when the document is NOT a financial document, or cannot be confidently classified into the above categories

Analyze the document structure, layout, and content to make your classification.
Provide your reasoning and a confidence score (0-1) for your classification.
If the document is blurry, corrupted, unrecognizable, or clearly not a financial document (e.g., a random image, letter, form), classify it as "unknown".

**IMPORTANT RULES:**
1. Only classify as a financial document if you are CONFIDENT (>0.5)
2. Non-financial documents MUST be classified as "unknown"
`

const classifyInstruction = "Classify this financial document:"
const extractInstruction = "Extract all information from this document:"

const bankStatementPrompt = `You are an expert at extracting data from bank statements.
Extract account details, statement period, balances, and all transactions.
Use YYYY-MM-DD format for dates. Use positive numbers for credits, negative for debits.
If information is not clearly visible, omit that field rather than guessing.`

const invoicePrompt = `You are an expert at extracting data from invoices.
Extract invoice details, vendor/customer info, line items, and totals.
Use YYYY-MM-DD format for dates.
If information is not clearly visible, omit that field rather than guessing.`

const receiptPrompt = `You are an expert at extracting data from receipts.
Extract merchant info, items purchased, and payment details.
Use YYYY-MM-DD format for dates and HH:MM 24-hour format for times.
If information is not clearly visible, omit that field rather than guessing.`

var extractionPrompts = map[domain.DocumentType]string{
	domain.TypeBankStatement: bankStatementPrompt,
	domain.TypeInvoice:       invoicePrompt,
	domain.TypeReceipt:       receiptPrompt,
}
