package openai

import (
	"fmt"
	"time"

	"jobtrail-backend/internal/application/domain"
)

func buildExtractionPrompt(emailContext string) string {
	return fmt.Sprintf(`The following is a series of emails. These emails may contain job application updates, acknowledgements, or thank you messages related to a job application.
Your task is to extract and return the relevant job application details strictly in JSON format.

The output must be a valid JSON object with an "applications" array. Each application has the following keys:
- company_name
- company_website
- applied_position (this should be **exactly** as stated in the email without any modifications)
- applied_timestamp
- application_status

The "applied_position" must be extracted exactly as it appears in the email. Do not modify capitalization, spacing, or wording.

The "application_status" is determined by the content of the email:

1. Acknowledgement of application (application_status = "applied"):
   - "Thank you for applying to Company XYZ"
   - "We have received your application"
   - "Your application has been received"

2. Rejection (application_status = "rejected"):
   - "Unfortunately, we have decided to move forward with other candidates"
   - "We regret to inform you that you have not been selected"
   - "After careful consideration, we are unable to offer you the position"

3. Moving forward (application_status = "next steps"):
   - "Congratulations, you have been shortlisted for the next round"
   - "We would like to invite you for an interview"
   - "You have been selected for the next round of interviews"

4. Interview or offer updates (custom application_status):
   - "Your interview has been scheduled" -> application_status = "interview scheduled"
   - "We are pleased to offer you the position" -> application_status = "offer received"

If none of the categories fit, set "application_status" according to the email's context.

Exclusion criteria: do not include generic or promotional emails such as job alerts, mass job opportunity emails, or advertisements. Emails containing phrases like "There's an opening at", "Check out this opportunity", "Job alert", or "Exciting opportunity at" must be omitted from the output.

If no emails match the requirement, return an empty JSON object like this: {"applications": []}.

The output must be a valid JSON object. Do not include any additional text outside of the JSON object.

Here is the email context:
%s`, emailContext)
}

func buildAgentSelectorPrompt(userQuery string) string {
	return fmt.Sprintf(`You are a helpful assistant tasked with choosing between two agent functions: 'vector_search_agent' and 'text_to_sql_agent', or returning 'invalid question' if the query is irrelevant, based on the user's query.

The user may ask about companies they have applied to. The relevant table schema for these tasks is as follows:

CREATE TABLE applied_companies (
    id SERIAL PRIMARY KEY,
    company_name VARCHAR(255) NOT NULL,
    company_website VARCHAR(255),
    job_position VARCHAR(255),
    applied_date TIMESTAMP WITH TIME ZONE NOT NULL,
    application_status text,
    UNIQUE (company_name, job_position)
);

Here are the rules to guide your decision:
1. If the query mentions a specific company, you must return the 'vector_search_agent'.
2. If the query is generic or refers to multiple companies without mentioning a specific company name, return the 'text_to_sql_agent'.
3. If the query doesn't ask questions about a specific company or companies in general, return 'invalid question'.

Consider the following examples for guidance:
- Example 1:
  User query: "What is the status of my application at Google?"
  Expected response: {"agent": "vector_search_agent"}

- Example 2:
  User query: "Show me all the companies I've applied to in the last month."
  Expected response: {"agent": "text_to_sql_agent"}

- Example 3:
  User query: "How many companies have I applied to?"
  Expected response: {"agent": "text_to_sql_agent"}

- Example 4:
  User query: "Did I apply to Apple? and when?"
  Expected response: {"agent": "vector_search_agent"}

- Example 5:
  User query: "What's the weather like?"
  Expected response: {"error": "invalid question"}

Based on these rules, return the appropriate response in a valid JSON format.

Here is the user query:
%s

JSON response:`, userQuery)
}

func buildTextToSQLPrompt(userQuery string) string {
	return fmt.Sprintf(`You are an AI assistant skilled in converting natural language queries to SQL.
The database has a table named 'applied_companies' with the following structure:

CREATE TABLE applied_companies (
    id SERIAL PRIMARY KEY,
    company_name VARCHAR(255) NOT NULL,
    company_website VARCHAR(255),
    job_position VARCHAR(255),
    applied_date TIMESTAMP WITH TIME ZONE NOT NULL,
    application_status VARCHAR(255),
    UNIQUE (company_name, job_position)
);

Please follow these constraints:
1. Understand the user's intention based on their question and use the given table structure to create a grammatically correct SQL query.
2. Generate one SQL query for every question the user provides.
3. Always limit the query to a maximum of 5 results using 'LIMIT 5' unless the user specifies a different number.
4. Select at most 5 named fields for each SQL query. Never use 'SELECT *'. For example, use 'SELECT company_name, job_position, applied_date, application_status FROM applied_companies'.
5. Ensure that all fields used in the query exist in the provided table structure.
6. If the phrasing of the question implies a visual representation (e.g. "plot", "chart", "graph"), set "chart_type" to one of "bar", "pie" or "line". Otherwise set it to "none".

User query: %s

Respond according to the following JSON format:
{
    "sql": "SQL query to run",
    "chart_type": "bar | pie | line | none"
}

Examples:
1. User query: "Show me the latest 5 job applications"
Response: {
    "sql": "SELECT company_name, job_position, applied_date, application_status FROM applied_companies ORDER BY applied_date DESC LIMIT 5",
    "chart_type": "none"
}

2. User query: "How many companies have I applied to?"
Response: {
    "sql": "SELECT COUNT(DISTINCT company_name) AS company_count FROM applied_companies LIMIT 5",
    "chart_type": "none"
}

JSON response:`, userQuery)
}

func buildAnswerPrompt(userQuery string, company *domain.AppliedCompany) string {
	website := "Unknown"
	if company.CompanyWebsite != nil && *company.CompanyWebsite != "" {
		website = *company.CompanyWebsite
	}

	return fmt.Sprintf(`You are a helpful assistant. The user asked the following query: '%s'.

The most relevant match found in the database is as follows:
- Company Name: %s
- Company Website: %s
- Job Position: %s
- Applied Date: %s
- Application Status: %s

Here are the rules to guide your response:

1. If the user's query contains the company name '%s', provide a concise and accurate response based **only** on the above context.

2. If the company name mentioned in the user's query is different from '%s', inform them that they haven't applied to that company yet.
For example: if the user's query contains "Company X" and the company name in context is "Company Y", your response would be: "You haven't applied to Company X yet."

3. If the user's query doesn't contain any company name, inform them that their query is irrelevant and encourage them to ask a question about a specific company.
For example: user's query: "What can you do?" Your response: "Please provide a company name in your query so I can check whether you applied to it or not along with providing useful stats."

Do not generate or assume any information beyond the provided context. Ensure your response remains strictly within the data provided.`,
		userQuery,
		company.CompanyName,
		website,
		company.JobPosition,
		company.AppliedDate.Format(time.RFC3339),
		company.ApplicationStatus,
		company.CompanyName,
		company.CompanyName,
	)
}
