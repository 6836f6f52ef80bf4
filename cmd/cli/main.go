package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "project":
		handleProject(args)
	case "req":
		handleRequirement(args)
	case "bag":
		handleDataBag(args)
	case "spec":
		handleSpec(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: agenticos auth <register|login|logout|who|passwd>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	case "passwd":
		changePassword(args[1:])
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleProject(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: agenticos project <list|create|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listProjects()
	case "create":
		createProject(args[1:])
	case "delete":
		deleteProject(args[1:])
	default:
		fmt.Printf("unknown project command: %s\n", subCmd)
	}
}

func handleRequirement(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: agenticos req <list|add>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listRequirements(args[1:])
	case "add":
		addRequirement(args[1:])
	default:
		fmt.Printf("unknown req command: %s\n", subCmd)
	}
}

func handleDataBag(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: agenticos bag <import|export>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "import":
		importDataBag(args[1:])
	case "export":
		exportDataBag(args[1:])
	default:
		fmt.Printf("unknown bag command: %s\n", subCmd)
	}
}

func handleSpec(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: agenticos spec <types|list|generate|download>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "types":
		listSpecTypes()
	case "list":
		listSpecs(args[1:])
	case "generate":
		generateSpec(args[1:])
	case "download":
		downloadSpec(args[1:])
	default:
		fmt.Printf("unknown spec command: %s\n", subCmd)
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "password (6+ chars, an uppercase letter, a digit and a symbol)")

	fs.Parse(args)

	if *email == "" || *name == "" || *password == "" {
		fmt.Println("Error: email, name, and password are required")
		fs.PrintDefaults()
		return
	}

	var result map[string]any
	status, err := apiJSON("POST", "/auth/register", map[string]string{
		"email": *email, "name": *name, "password": *password,
	}, &result)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == http.StatusCreated {
		fmt.Printf("✓ User registered: %s\n", *email)
		if token, ok := result["token"].(string); ok {
			saveToken(token)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result["error"])
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	var result map[string]any
	status, err := apiJSON("POST", "/auth/login", map[string]string{"email": *email, "password": *password}, &result)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == http.StatusOK {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result["error"])
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	var me map[string]any
	status, err := apiJSON("GET", "/me", nil, &me)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusOK {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in as %v <%v>\n", me["name"], me["email"])
}

func changePassword(args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	oldPassword := fs.String("old", "", "current password")
	newPassword := fs.String("new", "", "new password")

	fs.Parse(args)

	var result map[string]any
	status, err := apiJSON("POST", "/auth/change-password", map[string]string{
		"oldPassword": *oldPassword, "newPassword": *newPassword,
	}, &result)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == http.StatusOK {
		fmt.Println("✓ Password changed")
	} else {
		fmt.Printf("✗ Password change failed: %v\n", result["error"])
	}
}

// Project commands
func listProjects() {
	var projects []map[string]any
	if !fetchJSON("/projects", &projects) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tREQUIREMENTS\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%v\t%v\t%v\t%s\n", p["id"], p["name"], p["requirementCount"], formatMillis(p["updatedAt"]))
	}
	w.Flush()
}

func createProject(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "project name")
	description := fs.String("description", "", "project description")

	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	var result map[string]any
	status, err := apiJSON("POST", "/projects", map[string]string{"name": *name, "description": *description}, &result)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == http.StatusCreated {
		fmt.Printf("✓ Project created: %v (id %v)\n", result["name"], result["id"])
	} else {
		fmt.Printf("✗ Create failed: %v\n", result["error"])
	}
}

func deleteProject(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: agenticos project delete <project-id>")
		return
	}
	var result map[string]any
	status, err := apiJSON("DELETE", "/projects/"+args[0], nil, &result)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == http.StatusNoContent {
		fmt.Printf("✓ Project %s deleted\n", args[0])
	} else {
		fmt.Printf("✗ Delete failed: %v\n", result["error"])
	}
}

// Requirement commands
func listRequirements(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	project := fs.Int64("project", 0, "project ID")
	fs.Parse(args)

	var reqs []map[string]any
	if !fetchJSON(fmt.Sprintf("/projects/%d/requirements", *project), &reqs) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS")
	for _, r := range reqs {
		fmt.Fprintf(w, "%v\t%v\t%v\n", r["id"], r["title"], r["status"])
	}
	w.Flush()
}

func addRequirement(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	project := fs.Int64("project", 0, "project ID")
	title := fs.String("title", "", "requirement title")
	given := fs.String("given", "", "Given clause")
	when := fs.String("when", "", "When clause")
	then := fs.String("then", "", "Then clause")

	fs.Parse(args)

	if *project == 0 || *title == "" {
		fmt.Println("Error: project and title are required")
		fs.PrintDefaults()
		return
	}

	gherkin := map[string][]string{"given": {}, "when": {}, "then": {}}
	for key, clause := range map[string]string{"given": *given, "when": *when, "then": *then} {
		if clause != "" {
			gherkin[key] = []string{clause}
		}
	}

	var result map[string]any
	status, err := apiJSON("POST", fmt.Sprintf("/projects/%d/requirements", *project), map[string]any{
		"title": *title, "gherkin": gherkin,
	}, &result)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == http.StatusCreated {
		fmt.Printf("✓ Requirement added (id %v)\n", result["id"])
	} else {
		fmt.Printf("✗ Add failed: %v\n", result["error"])
	}
}

// Data bag commands
func importDataBag(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	project := fs.Int64("project", 0, "project ID")
	file := fs.String("file", "", "CSV or JSON file")
	name := fs.String("name", "", "bag name (default: file name)")
	format := fs.String("format", "", "csv or json (default: detect)")

	fs.Parse(args)

	if *project == 0 || *file == "" {
		fmt.Println("Error: project and file are required")
		fs.PrintDefaults()
		return
	}
	content, err := os.ReadFile(*file)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if *name == "" {
		base := filepath.Base(*file)
		*name = base[:len(base)-len(filepath.Ext(base))]
	}

	var result map[string]any
	status, err := apiJSON("POST", fmt.Sprintf("/projects/%d/data-bags/import", *project), map[string]string{
		"name": *name, "format": *format, "content": string(content),
	}, &result)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == http.StatusCreated {
		records, _ := result["records"].([]any)
		fmt.Printf("✓ Imported %d records into %q (id %v)\n", len(records), *name, result["id"])
	} else {
		fmt.Printf("✗ Import failed: %v\n", result["error"])
	}
}

func exportDataBag(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	project := fs.Int64("project", 0, "project ID")
	bag := fs.Int64("bag", 0, "data bag ID")
	fs.Parse(args)

	resp, err := apiRequest("GET", fmt.Sprintf("/projects/%d/data-bags/%d/export", *project, *bag), nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("✗ Export failed: %s\n", errorMessage(resp))
		return
	}
	io.Copy(os.Stdout, resp.Body)
}

// Spec commands
func listSpecTypes() {
	var catalog struct {
		SpecTypes []struct {
			ID          string `json:"id"`
			Label       string `json:"label"`
			Description string `json:"description"`
		} `json:"specTypes"`
		DefaultModel string `json:"defaultModel"`
	}
	if !fetchJSON("/catalog", &catalog) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tLABEL\tDESCRIPTION")
	for _, st := range catalog.SpecTypes {
		fmt.Fprintf(w, "%s\t%s\t%s\n", st.ID, st.Label, st.Description)
	}
	w.Flush()
	fmt.Printf("\nDefault model: %s\n", catalog.DefaultModel)
}

func listSpecs(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	project := fs.Int64("project", 0, "project ID")
	fs.Parse(args)

	var specs []map[string]any
	if !fetchJSON(fmt.Sprintf("/projects/%d/specs", *project), &specs) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tMODEL\tCREATED")
	for _, s := range specs {
		fmt.Fprintf(w, "%v\t%v\t%v\t%s\n", s["id"], s["specType"], s["model"], formatMillis(s["createdAt"]))
	}
	w.Flush()
}

func generateSpec(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	project := fs.Int64("project", 0, "project ID")
	specType := fs.String("type", "functional", "spec type (see: agenticos spec types)")
	model := fs.String("model", "", "model ID (default: server default)")
	apiKey := fs.String("api-key", os.Getenv("ANTHROPIC_API_KEY"), "Anthropic API key")

	fs.Parse(args)

	if *project == 0 {
		fmt.Println("Error: project is required")
		fs.PrintDefaults()
		return
	}

	resp, err := apiRequest("POST", fmt.Sprintf("/projects/%d/specs/generate", *project), map[string]string{
		"specType": *specType, "model": *model, "apiKey": *apiKey,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("✗ Generation failed: %s\n", errorMessage(resp))
		return
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	for sc.Scan() {
		var frame struct {
			Type  string         `json:"type"`
			Text  string         `json:"text"`
			Spec  map[string]any `json:"spec"`
			Error string         `json:"error"`
		}
		if err := json.Unmarshal(sc.Bytes(), &frame); err != nil {
			continue
		}
		switch frame.Type {
		case "delta":
			fmt.Print(frame.Text)
		case "done":
			fmt.Fprintf(os.Stderr, "\n✓ Saved spec %v\n", frame.Spec["id"])
		case "error":
			fmt.Fprintf(os.Stderr, "\n✗ Generation failed: %s\n", frame.Error)
		}
	}
}

func downloadSpec(args []string) {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	project := fs.Int64("project", 0, "project ID")
	spec := fs.Int64("spec", 0, "spec ID")
	out := fs.String("out", "", "output file (default: name suggested by the server)")
	fs.Parse(args)

	resp, err := apiRequest("GET", fmt.Sprintf("/projects/%d/specs/%d/download", *project, *spec), nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("✗ Download failed: %s\n", errorMessage(resp))
		return
	}

	path := *out
	if path == "" {
		path = "spec-" + strconv.FormatInt(*spec, 10) + ".md"
		if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
			path = filepath.Base(params["filename"])
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("✓ Wrote %s\n", path)
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("AGENTICOS_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agenticos", "token")
}

func saveToken(token string) error {
	os.MkdirAll(filepath.Dir(tokenFile()), 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

var httpClient = &http.Client{Timeout: 5 * time.Minute}

func apiRequest(method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, getAPIURL()+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := loadToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return httpClient.Do(req)
}

// apiJSON sends body and decodes any JSON response into out.
func apiJSON(method, path string, body, out any) (int, error) {
	resp, err := apiRequest(method, path, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}

// fetchJSON GETs path into out and prints the failure when there is one.
func fetchJSON(path string, out any) bool {
	resp, err := apiRequest("GET", path, nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("✗ Request failed: %s\n", errorMessage(resp))
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	return true
}

func errorMessage(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return resp.Status
	}
	return body.Error
}

func formatMillis(v any) string {
	ms, ok := v.(float64)
	if !ok {
		return "-"
	}
	return time.UnixMilli(int64(ms)).Local().Format("2006-01-02 15:04")
}

func printUsage() {
	fmt.Print(`AgenticOS CLI

Usage:
  agenticos <command> [options]

Commands:
  auth     User authentication (register, login, logout, who, passwd)
  project  Projects (list, create, delete)
  req      Requirements (list, add)
  bag      Data bags (import, export)
  spec     Generated specs (types, list, generate, download)
  help     Show this help message

Environment Variables:
  AGENTICOS_API       API endpoint (default: http://localhost:8080/api)
  ANTHROPIC_API_KEY   Key sent with spec generate when -api-key is not given

Examples:
  agenticos auth register -email user@example.com -name User -password 'Secret#1'
  agenticos project create -name Checkout
  agenticos req add -project 1 -title "Pay by card" -given "a cart" -when "I pay" -then "I get a receipt"
  agenticos bag import -project 1 -file cards.csv
  agenticos spec generate -project 1 -type bdd
`)
}
