package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/olekukonko/tablewriter"

	"github.com/nonsonwune/admitmatch/engine"
	"github.com/nonsonwune/admitmatch/migrations"
	"github.com/nonsonwune/admitmatch/store"
)

func init() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}
}

func main() {
	// Connect to database using environment variables
	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"))

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Test connection
	err = db.Ping()
	if err != nil {
		log.Fatal(err)
	}

	// Initialize database schema
	if err := migrations.InitSchema(db); err != nil {
		log.Printf("Warning: Error initializing schema: %v", err)
	}

	eng := engine.New(engineConfig())
	st := store.New(db)
	ctx := context.Background()

	for {
		displayMenu()
		choice := readChoice()

		switch choice {
		case "1":
			handleResolveGroups(ctx, eng, st)
		case "2":
			handleLinkHistory(ctx, eng, st)
		case "3":
			handleGroupDetail(ctx, eng, st)
		case "4":
			handleClassifyCandidate(ctx, eng, st)
		case "5":
			color.Green("Thank you for using the Admission Group Advisory Engine!")
			return
		default:
			color.Red("Invalid choice. Please try again.")
		}
	}
}

func displayMenu() {
	color.Cyan("\n=== Admission Group Advisory Engine ===")
	fmt.Println("1. Resolve Admission Groups")
	fmt.Println("2. Link Historical Scores")
	fmt.Println("3. Group Detail Lookup")
	fmt.Println("4. Classify Candidate")
	fmt.Println("5. Exit")
	fmt.Print("\nEnter your choice (1-5): ")
}

// engineConfig builds the engine configuration, honoring the WORKER_COUNT
// environment override for the linker.
func engineConfig() engine.Config {
	config := engine.DefaultConfig()
	if envWorkerCount := os.Getenv("WORKER_COUNT"); envWorkerCount != "" {
		if count, err := strconv.Atoi(envWorkerCount); err == nil && count > 0 {
			config.WorkerCount = count
		}
	}
	return config
}

func handleResolveGroups(ctx context.Context, eng *engine.Engine, st *store.Store) {
	fmt.Print("Enter the cycle year (e.g., 2024): ")
	year := readInt()
	if year <= 0 {
		color.Red("Invalid year.")
		return
	}

	quotaRecords, err := st.LoadQuotaRecords(ctx, year)
	if err != nil {
		color.Red("Error loading quota records: %v", err)
		return
	}
	if len(quotaRecords) == 0 {
		color.Yellow("No quota records found for %d. Import the cycle first.", year)
		return
	}

	existing, err := st.ExistingGroupIDs(ctx)
	if err != nil {
		color.Red("Error loading existing groups: %v", err)
		return
	}

	reg := engine.BuildRegistry(quotaRecords, existing)
	result := reg.Result()

	summary, err := st.UpsertGroups(ctx, result.Groups)
	if err != nil {
		color.Red("Error persisting groups: %v", err)
		return
	}

	annotated, annotateFailed, err := st.AnnotateQuotaRecords(ctx, reg)
	if err != nil {
		color.Red("Error annotating quota records: %v", err)
		return
	}

	color.Yellow("\nGroup Resolution Summary (%d)", year)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Count"})
	table.Append([]string{"Quota Records Processed", strconv.Itoa(len(quotaRecords))})
	table.Append([]string{"Distinct Groups", strconv.Itoa(reg.Len())})
	table.Append([]string{"Groups Created", strconv.Itoa(summary.Created)})
	table.Append([]string{"Groups Reused", strconv.Itoa(summary.Reused)})
	table.Append([]string{"Groups Updated", strconv.Itoa(summary.Updated)})
	table.Append([]string{"Groups Failed", strconv.Itoa(summary.Failed)})
	table.Append([]string{"Rejected Quota Records", strconv.Itoa(len(result.Rejected))})
	table.Append([]string{"Quota Records Annotated", strconv.Itoa(annotated)})
	table.Append([]string{"Annotation Failures", strconv.Itoa(annotateFailed)})
	table.Render()

	printRejectedSample(result.Rejected)
	printUpsertErrors(summary.Errors)
}

func handleLinkHistory(ctx context.Context, eng *engine.Engine, st *store.Store) {
	groups, err := st.LoadGroups(ctx)
	if err != nil {
		color.Red("Error loading groups: %v", err)
		return
	}
	if len(groups) == 0 {
		color.Yellow("No admission groups found. Resolve the current cycle first.")
		return
	}

	scores, err := st.LoadScoreRecords(ctx)
	if err != nil {
		color.Red("Error loading score records: %v", err)
		return
	}
	if len(scores) == 0 {
		color.Yellow("No historical score records to link.")
		return
	}

	fmt.Printf("\nUsing %d workers for parallel processing\n", eng.Config().WorkerCount)

	reg := engine.RegistryFromGroups(groups)
	result := eng.LinkHistory(reg, scores)

	annotated, failed, err := st.AnnotateScoreRecords(ctx, result.Linked)
	if err != nil {
		color.Red("Error annotating score records: %v", err)
		return
	}

	color.Yellow("\nHistory Linking Summary")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Count"})
	table.Append([]string{"Score Records Processed", strconv.Itoa(result.Total())})
	table.Append([]string{"Linked", strconv.Itoa(len(result.Linked))})
	table.Append([]string{"Unresolved", strconv.Itoa(len(result.Unresolved))})
	table.Append([]string{"Coverage", fmt.Sprintf("%.1f%%", result.Coverage()*100)})
	table.Append([]string{"Annotated", strconv.Itoa(annotated)})
	table.Append([]string{"Annotation Failures", strconv.Itoa(failed)})
	table.Render()

	if len(result.ByStrategy) > 0 {
		color.Yellow("\nLinked by Strategy")
		strategyTable := tablewriter.NewWriter(os.Stdout)
		strategyTable.SetHeader([]string{"Strategy", "Count"})
		for _, strategy := range []string{engine.StrategyGroupCode, engine.StrategyAltLabel} {
			if count := result.ByStrategy[strategy]; count > 0 {
				strategyTable.Append([]string{strategy, strconv.Itoa(count)})
			}
		}
		strategyTable.Render()
	}

	printUnresolvedSummary(result)
}

func handleGroupDetail(ctx context.Context, eng *engine.Engine, st *store.Store) {
	fmt.Print("Enter college code: ")
	collegeCode := readString()
	fmt.Print("Enter group code: ")
	groupCode := readString()
	fmt.Print("Enter province: ")
	province := readString()
	fmt.Print("Enter subject track: ")
	subjectTrack := readString()

	detail, err := st.GroupDetail(ctx, eng, collegeCode, groupCode, province, subjectTrack)
	if err != nil {
		color.Red("Error loading group detail: %v", err)
		return
	}
	if detail == nil {
		color.Yellow("No admission group found for that key.")
		return
	}

	group := detail.Group
	color.Cyan("\n%s — group %s (%s, %s)", group.CollegeName, group.RawGroupCode, group.Province, group.SubjectTrack)
	fmt.Printf("Group ID: %s\n", group.ID)
	if group.GroupName.Valid {
		fmt.Printf("Group Name: %s\n", group.GroupName.String)
	}

	color.Yellow("\nMajors (%d planned slots total)", detail.PlanTotal())
	majorTable := tablewriter.NewWriter(os.Stdout)
	majorTable.SetHeader([]string{"Major Code", "Major Name", "Plan Count"})
	for _, rec := range detail.QuotaRecords {
		majorTable.Append([]string{rec.MajorCode, rec.MajorName, strconv.Itoa(rec.PlanCount)})
	}
	majorTable.Render()

	color.Yellow("\nScore History")
	scoreTable := tablewriter.NewWriter(os.Stdout)
	scoreTable.SetHeader([]string{"Year", "Min Score", "Min Rank", "Avg Score", "Max Score"})
	for _, rec := range detail.ScoreRecords {
		scoreTable.Append([]string{
			strconv.Itoa(rec.Year),
			nullInt(rec.MinScore),
			nullInt(rec.MinRank),
			nullFloat(rec.AvgScore),
			nullInt(rec.MaxScore),
		})
	}
	scoreTable.Render()

	stats := detail.Statistics
	color.Yellow("\nStatistics (last %d years)", eng.Config().MaxYears)
	fmt.Printf("Years Available: %d\n", stats.YearsAvailable)
	if stats.HasAvgMinScore {
		fmt.Printf("Average Min Score: %.1f\n", stats.AvgMinScore)
	}
	if stats.HasAvgMinRank {
		fmt.Printf("Average Min Rank: %.0f\n", stats.AvgMinRank)
	}
	fmt.Printf("Trend: %s\n", stats.Trend)
}

func handleClassifyCandidate(ctx context.Context, eng *engine.Engine, st *store.Store) {
	fmt.Print("Enter group ID: ")
	groupID := readString()
	fmt.Print("Enter candidate score: ")
	score := readFloat()
	fmt.Print("Enter candidate rank (blank if unknown): ")
	rank := readOptionalInt64()

	result, err := st.ClassifyCandidate(ctx, eng, score, rank, groupID)
	if err == store.ErrGroupNotFound {
		color.Yellow("No admission group with that ID.")
		return
	}
	if err != nil {
		color.Red("Error classifying candidate: %v", err)
		return
	}

	color.Cyan("\nClassification Result")
	fmt.Printf("Probability: %.2f\n", result.Probability)
	switch result.Category {
	case engine.CategorySafe:
		color.Green("Category: %s", result.Category)
	case engine.CategoryBalanced:
		color.Yellow("Category: %s", result.Category)
	default:
		color.Red("Category: %s", result.Category)
	}
	fmt.Printf("Safety Margin: %d\n", result.SafetyMargin)
	fmt.Printf("Trend: %s\n", result.Trend)
	if result.InsufficientData {
		color.Yellow("Insufficient historical data; neutral estimate returned.")
	}
	if result.Excluded {
		color.Red("Excluded from recommendations: %s", result.ExclusionReason)
	}
}

func printRejectedSample(rejected []engine.InvalidQuotaRecord) {
	if len(rejected) == 0 {
		return
	}
	color.Yellow("\nSample Rejected Quota Records (up to 10):")
	for i := 0; i < min(10, len(rejected)); i++ {
		rec := rejected[i]
		fmt.Printf("- [%s] college=%q major=%q province=%q\n",
			rec.Reason, rec.Record.CollegeCode, rec.Record.MajorCode, rec.Record.Province)
	}
}

func printUpsertErrors(errs []store.RecordError) {
	if len(errs) == 0 {
		return
	}
	color.Red("\nSample Persistence Failures (up to 10):")
	for i := 0; i < min(10, len(errs)); i++ {
		fmt.Printf("- %v\n", errs[i])
	}
}

func printUnresolvedSummary(result engine.LinkResult) {
	if len(result.Unresolved) == 0 {
		return
	}
	color.Yellow("\nUnresolved by Reason")
	reasonTable := tablewriter.NewWriter(os.Stdout)
	reasonTable.SetHeader([]string{"Reason", "Count", "Share"})
	for _, reason := range []string{
		engine.ReasonMissingCollegeCode,
		engine.ReasonMissingGroupIdentifier,
		engine.ReasonNoMatchingGroup,
	} {
		count := result.ByReason[reason]
		if count == 0 {
			continue
		}
		reasonTable.Append([]string{
			reason,
			strconv.Itoa(count),
			fmt.Sprintf("%.1f%%", float64(count)/float64(len(result.Unresolved))*100),
		})
	}
	reasonTable.Render()

	color.Yellow("\nSample Unresolved Records (up to 10):")
	for i := 0; i < min(10, len(result.Unresolved)); i++ {
		rec := result.Unresolved[i]
		fmt.Printf("- [%s] year=%d college=%q group=%q alt=%q\n",
			rec.Reason, rec.Record.Year, rec.Record.CollegeCode.String,
			rec.Record.GroupCodeRaw.String, rec.Record.AltGroupLabel.String)
	}
}

func readChoice() string {
	var input string
	fmt.Scanln(&input)
	return strings.TrimSpace(input)
}

func readString() string {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

func readInt() int {
	var input string
	fmt.Scanln(&input)
	i, _ := strconv.Atoi(strings.TrimSpace(input))
	return i
}

func readFloat() float64 {
	var input string
	fmt.Scanln(&input)
	f, _ := strconv.ParseFloat(strings.TrimSpace(input), 64)
	return f
}

func readOptionalInt64() int64 {
	value := readString()
	if value == "" {
		return 0
	}
	i, _ := strconv.ParseInt(value, 10, 64)
	return i
}

// Helper functions
func nullInt(v sql.NullInt64) string {
	if v.Valid {
		return strconv.FormatInt(v.Int64, 10)
	}
	return "N/A"
}

func nullFloat(v sql.NullFloat64) string {
	if v.Valid {
		return fmt.Sprintf("%.1f", v.Float64)
	}
	return "N/A"
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
