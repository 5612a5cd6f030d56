package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wanderstay/wander/client"
)

// inboxCmd represents the base command when called without any subcommands
func inboxCmd(svc *services) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Read and answer host messages",
	}

	cmd.AddCommand(
		inboxListCmd(svc),
		inboxShowCmd(svc),
		inboxSendCmd(svc),
	)

	return cmd
}

// inboxListCmd shows the conversation threads in the inbox
func inboxListCmd(svc *services) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the conversations in your inbox",
		Run: func(cmd *cobra.Command, args []string) {
			listThreads(cmd, svc)
		},
	}
}

func listThreads(cmd *cobra.Command, svc *services) {
	log.Info().Msg("Listing inbox threads...")

	threads, err := svc.api.ListThreads(cmd.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch inbox threads.")
		cmd.PrintErrln("Error: Failed to fetch the inbox. Please check the logs for details.")
		return
	}

	if len(threads) == 0 {
		cmd.Println("Your inbox is empty.")
		return
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Thread ID", "Stay", "Host", "Last Message", "Updated", "Unread"})
	table.SetColMinWidth(3, 40)                      // Set minimum width for the Last Message column
	table.SetAlignment(tablewriter.ALIGN_LEFT)       // Align all columns to the left
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT) // Align headers to the left
	table.SetAutoWrapText(false)                     // Disable text wrapping in all columns
	table.SetRowLine(false)                          // Disable row line breaks

	for _, thread := range threads {
		unread := ""
		if thread.Unread > 0 {
			unread = fmt.Sprintf("%d", thread.Unread)
		}
		table.Append([]string{
			fmt.Sprintf("%d", thread.ID),
			thread.StayTitle,
			thread.HostName,
			thread.LastMessage,
			thread.UpdatedAt,
			unread,
		})
	}

	table.Render()
}

// inboxShowCmd shows the messages of one conversation thread
func inboxShowCmd(svc *services) *cobra.Command {
	return &cobra.Command{
		Use:   "show [threadID]",
		Short: "Show the messages in a conversation",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			threadID, ok := parseThreadID(cmd, args[0])
			if !ok {
				return
			}
			showThread(cmd, svc, threadID)
		},
	}
}

func showThread(cmd *cobra.Command, svc *services, threadID int) {
	log.Info().Msgf("Fetching thread with ID=%d", threadID)

	thread, messages, err := svc.api.FetchThread(cmd.Context(), threadID)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to fetch thread with ID=%d", threadID)
		cmd.PrintErrln("Error: Failed to fetch the conversation. Please check the logs for details.")
		return
	}

	cmd.Printf("Conversation with %s about \"%s\"\n", thread.HostName, thread.StayTitle)
	if len(messages) == 0 {
		cmd.Println("No messages in this conversation yet.")
		return
	}
	for _, message := range messages {
		cmd.Printf("[%s] %s: %s\n", message.SentAt, message.Sender, message.Body)
	}
}

// inboxSendCmd sends a message in a conversation thread
func inboxSendCmd(svc *services) *cobra.Command {
	var body string

	cmd := &cobra.Command{
		Use:   "send [threadID]",
		Short: "Send a message in a conversation",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			threadID, ok := parseThreadID(cmd, args[0])
			if !ok {
				return
			}
			sendMessage(cmd, svc, threadID, body)
		},
	}

	cmd.Flags().StringVarP(&body, "message", "m", "", "Message text to send (required)")

	if err := cmd.MarkFlagRequired("message"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'message' flag as required")
	}

	return cmd
}

func sendMessage(cmd *cobra.Command, svc *services, threadID int, body string) {
	if body == "" {
		cmd.PrintErrln("Error: Message text cannot be empty.")
		return
	}

	message, err := svc.api.SendMessage(cmd.Context(), threadID, body)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to send message in thread with ID=%d", threadID)
		if errors.Is(err, client.ErrQueuedOffline) {
			cmd.Println("You appear to be offline. The message will be sent when the connection returns.")
			return
		}
		cmd.PrintErrln("Error: Failed to send the message. Please check the logs for details.")
		return
	}

	cmd.Printf("Message %d sent.\n", message.ID)
}

// parseThreadID converts a positional thread ID argument.
func parseThreadID(cmd *cobra.Command, arg string) (int, bool) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		cmd.PrintErrln("Error: Invalid thread ID. It must be a positive integer.")
		return 0, false
	}
	return id, true
}
